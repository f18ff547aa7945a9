package pgdelegate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplice(t *testing.T) {
	tests := []struct {
		name    string
		content string
		offset  int64
		data    string
		want    string
	}{
		{name: "overwrite", content: "abcdef", offset: 1, data: "XY", want: "aXYdef"},
		{name: "append", content: "abc", offset: 3, data: "de", want: "abcde"},
		{name: "overlap end", content: "abc", offset: 2, data: "XYZ", want: "abXYZ"},
		{name: "gap is zero filled", content: "ab", offset: 4, data: "c", want: "ab\x00\x00c"},
		{name: "empty", content: "", offset: 0, data: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splice([]byte(tt.content), tt.offset, []byte(tt.data))
			assert.Equal(t, tt.want, string(got))
		})
	}
}
