package fixengine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/fixengine"
	"github.com/c360studio/soc2scan/soc2err"
)

func TestApplyFixToContent_SingleOccurrence(t *testing.T) {
	content := "line1\ndef get_user(id):\n    return User.query.get(id)\nline4\n"
	got, err := fixengine.ApplyFixToContent(content, 2, "def get_user(id):", "def get_user(id):\n    check_auth()")
	require.NoError(t, err)
	assert.Contains(t, got, "check_auth()")
	assert.Contains(t, got, "line4")
}

func TestApplyFixToContent_DisambiguatesByLineNumber(t *testing.T) {
	content := "x = 1\ntoken = \"abc\"\ny = 2\ntoken = \"abc\"\nz = 3\n"
	got, err := fixengine.ApplyFixToContent(content, 4, `token = "abc"`, `token = os.Getenv("TOKEN")`)
	require.NoError(t, err)

	lines := countOccurrences(got, `token = "abc"`)
	assert.Equal(t, 1, lines, "only the line-4 occurrence should have been replaced")
	assert.Contains(t, got, "os.Getenv")
}

func TestApplyFixToContent_FallsBackWhenLineWrongButUnambiguous(t *testing.T) {
	content := "a\nb\ndef only_once():\n    pass\nc\n"
	got, err := fixengine.ApplyFixToContent(content, 99, "def only_once():", "def only_once():\n    audit_log()")
	require.NoError(t, err)
	assert.Contains(t, got, "audit_log()")
}

func TestApplyFixToContent_AmbiguousWithoutLineMatchFails(t *testing.T) {
	content := "dup()\nx\ndup()\ny\n"
	_, err := fixengine.ApplyFixToContent(content, 99, "dup()", "fixed()")
	require.Error(t, err)
	assert.True(t, errors.Is(err, soc2err.ErrFixLocation))
}

func TestApplyFixToContent_SnippetNotFound(t *testing.T) {
	_, err := fixengine.ApplyFixToContent("hello\n", 1, "missing", "replacement")
	require.Error(t, err)
	assert.True(t, errors.Is(err, soc2err.ErrFixLocation))
}

func TestApplyFixToContent_RejectsNonPositiveLine(t *testing.T) {
	_, err := fixengine.ApplyFixToContent("hello\n", 0, "hello", "world")
	require.Error(t, err)
	assert.True(t, errors.Is(err, soc2err.ErrFixLocation))
}

func TestApplyFixToContent_RejectsEmptyFile(t *testing.T) {
	_, err := fixengine.ApplyFixToContent("", 1, "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, soc2err.ErrFixLocation))
}

func TestApplyFixToContent_EmptyOriginalInsertsAtLine(t *testing.T) {
	content := "a\nb\nc\n"
	got, err := fixengine.ApplyFixToContent(content, 2, "", "# TODO: review\n")
	require.NoError(t, err)
	assert.Equal(t, "a\n# TODO: review\nb\nc\n", got)
}

func TestApplyFixToContent_PreservesTrailingNewline(t *testing.T) {
	content := "a\nb\n"
	got, err := fixengine.ApplyFixToContent(content, 1, "a", "aaa")
	require.NoError(t, err)
	assert.Equal(t, "aaa\nb\n", got)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
