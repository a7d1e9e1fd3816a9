package main

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSSE(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr string
	}{
		{
			name: "fragments then done",
			body: "data: {\"choices\":[{\"delta\":{\"content\":\"How\"}}]}\n\n" +
				": keepalive\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\" far\"}}]}\n\n" +
				"data: [DONE]\n\n",
			want: []string{"How", " far"},
		},
		{
			name:    "error frame",
			body:    "data: {\"choices\":[{\"delta\":{\"content\":\"How\"}}]}\n\ndata: {\"error\":{\"message\":\"boom\"}}\n\n",
			want:    []string{"How"},
			wantErr: "stream error: boom",
		},
		{
			name:    "truncated",
			body:    "data: {\"choices\":[{\"delta\":{\"content\":\"How\"}}]}\n\n",
			want:    []string{"How"},
			wantErr: io.ErrUnexpectedEOF.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := readSSE(strings.NewReader(tt.body), func(s string) {
				got = append(got, s)
			})

			assert.Equal(t, tt.want, got)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
