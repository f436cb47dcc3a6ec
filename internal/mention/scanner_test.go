package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	bounds := Bounds{Min: 2, Max: 20}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single short handle rejected", "hi @bob and @x!", []string{"bob"}},
		{"too long", "@thisusernameiswaytoolongtobevalid", nil},
		{"exactly max", "@abcdefghijklmnopqrst", []string{"abcdefghijklmnopqrst"}},
		{"dedup case insensitive", "@Bob @bob @BOB", []string{"bob"}},
		{"order of appearance", "@zed then @amy", []string{"zed", "amy"}},
		{"underscore and digits", "ping @ann_99.", []string{"ann_99"}},
		{"email is not a mention", "mail bob@example.org", nil},
		{"bare at", "@ @@ @!", nil},
		{"double at", "@@carl", []string{"carl"}},
		{"non ascii stops token", "@josé", []string{"jos"}},
		{"glued to a handle character", "a@bob _@ann 9@cat", nil},
		{"glued to a non ascii letter", "ü@bob", []string{"bob"}},
		{"non ascii handle", "@日本 @ünter", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.text, bounds))
		})
	}
}

func TestScanMarkup(t *testing.T) {
	bounds := Bounds{Min: 3, Max: 16}

	assert.Equal(t, []string{"alice", "bob"}, ScanMarkup("<p>hey @alice</p><p>@bob</p>", bounds))
	assert.Equal(t, []string{"carol"}, ScanMarkup("thanks &#64;carol", bounds))
	assert.Nil(t, ScanMarkup(`<a href="mailto:x@dave.org">link</a>`, bounds))
	assert.Nil(t, ScanMarkup("<script>var a='@eve'</script>", bounds))
}

func TestPlainTextLeavesTextAlone(t *testing.T) {
	assert.Equal(t, "hi @bob", PlainText("hi @bob"))
}
