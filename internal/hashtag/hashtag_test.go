package hashtag

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storedForm = regexp.MustCompile(`^[a-z0-9_]+$`)

func TestExtract_LowercasesAndDedupes(t *testing.T) {
	got := Extract("Great job! #Awesome #teamwork and again #AWESOME, #team_work2")
	assert.Equal(t, []string{"awesome", "teamwork", "team_work2"}, got)
	for _, tag := range got {
		assert.Regexp(t, storedForm, tag)
	}
}

func TestExtract_NoTags(t *testing.T) {
	assert.Empty(t, Extract("no tags here, just a # sign and #"))
}

func TestExtract_StopsAtPunctuation(t *testing.T) {
	assert.Equal(t, []string{"go", "rust"}, Extract("#go-lang and #rust!"))
}

func TestExtract_SkipsOverlongTags(t *testing.T) {
	long := strings.Repeat("a", MaxTagLength+1)
	assert.Equal(t, []string{"ok"}, Extract("#"+long+" #ok"))
}

func TestAll_StopsEarly(t *testing.T) {
	var seen []string
	for tag := range All("#a #b #c") {
		seen = append(seen, tag)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestMerge_ExplicitFirstThenText(t *testing.T) {
	got := Merge([]string{"#Release", "ux"}, "shipping the #UX fixes in #release #qa")
	assert.Equal(t, []string{"release", "ux", "qa"}, got)
}

func TestMerge_CapKeepsExplicitTags(t *testing.T) {
	explicit := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		explicit = append(explicit, fmt.Sprintf("e%d", i))
	}
	content := "#t1 #t2 #t3 #t4"

	got := Merge(explicit, content)
	require.Len(t, got, MaxTags)
	assert.Equal(t, explicit, got[:8])
	assert.Equal(t, []string{"t1", "t2"}, got[8:])
}

func TestMerge_TooManyExplicit(t *testing.T) {
	explicit := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		explicit = append(explicit, fmt.Sprintf("x%d", i))
	}
	got := Merge(explicit, "#ignored")
	assert.Len(t, got, MaxTags)
	assert.NotContains(t, got, "ignored")
}

func TestMerge_DropsUnusableExplicit(t *testing.T) {
	got := Merge([]string{"  ", "#", "!!!", "Dev Ops"}, "")
	assert.Equal(t, []string{"devops"}, got)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"#Go":                          "go",
		"  team_work ":                 "team_work",
		"a-b.c":                        "abc",
		"":                             "",
		strings.Repeat("x", 51):        "",
		strings.Repeat("x", MaxTagLength): strings.Repeat("x", MaxTagLength),
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestAdded(t *testing.T) {
	assert.Equal(t, []string{"c"}, Added([]string{"a", "b"}, []string{"b", "c", "a"}))
	assert.Nil(t, Added([]string{"a"}, []string{"a"}))
}

func TestSuggestionTokens(t *testing.T) {
	got := SuggestionTokens("the UI is slow... on mobile-web !! ok")
	assert.Equal(t, []string{"the", "slow", "mobileweb"}, got)
}

func TestSuggestionTokens_LengthCheckedBeforeStripping(t *testing.T) {
	// "a!!" passes the length check and strips down to "a".
	assert.Equal(t, []string{"a"}, SuggestionTokens("a!! ??? go"))
}

func TestSuggestionTokens_CountsRunesNotBytes(t *testing.T) {
	// "éa" is three bytes but two characters; "été" is long enough and
	// strips down to "t".
	assert.Equal(t, []string{"t"}, SuggestionTokens("éa été"))
}
