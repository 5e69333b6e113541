package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteSizeString(t *testing.T) {
	tests := []struct {
		name string
		size ByteSize
		want string
	}{
		{name: "bytes", size: 512, want: "512B"},
		{name: "zero", size: 0, want: "0B"},
		{name: "kibibytes", size: 2048, want: "2.00KiB"},
		{name: "mebibytes", size: 5 * MiB, want: "5.00MiB"},
		{name: "fractional mebibytes", size: 1536 * KiB, want: "1.50MiB"},
		{name: "gibibytes", size: 3 * GiB, want: "3.00GiB"},
		{name: "tebibytes", size: 2 * TiB, want: "2.00TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.size.String())
		})
	}
}
