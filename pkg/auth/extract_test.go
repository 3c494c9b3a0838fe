package auth_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/boogy/drinks-warden/pkg/auth"
	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  []string // nil means no Authorization header
		want    string
		wantErr *autherr.Failure
	}{
		{name: "valid", header: []string{"Bearer abc.def.ghi"}, want: "abc.def.ghi"},
		{name: "lowercase scheme", header: []string{"bearer abc.def.ghi"}, want: "abc.def.ghi"},
		{name: "no header", wantErr: autherr.ErrMissingHeader},
		{name: "empty value", header: []string{""}, wantErr: autherr.ErrMissingHeader},
		{name: "blank value", header: []string{"   "}, wantErr: autherr.ErrMissingHeader},
		{name: "scheme only", header: []string{"Bearer"}, wantErr: autherr.ErrMalformedHeader},
		{name: "empty token", header: []string{"Bearer "}, wantErr: autherr.ErrMalformedHeader},
		{name: "three parts", header: []string{"Bearer abc def"}, wantErr: autherr.ErrMalformedHeader},
		{name: "double space", header: []string{"Bearer  abc"}, wantErr: autherr.ErrMalformedHeader},
		{name: "basic scheme", header: []string{"Basic dXNlcjpwYXNz"}, wantErr: autherr.ErrMalformedHeader},
		{name: "token only", header: []string{"abc.def.ghi"}, wantErr: autherr.ErrMalformedHeader},
		{name: "oversized", header: []string{"Bearer " + strings.Repeat("a", auth.MaxTokenLength+1)}, wantErr: autherr.ErrMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for _, v := range tt.header {
				h.Add("Authorization", v)
			}

			got, err := auth.ExtractBearerToken(h)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBearerTokenAtLimit(t *testing.T) {
	token := strings.Repeat("a", auth.MaxTokenLength)
	h := http.Header{"Authorization": []string{"Bearer " + token}}

	got, err := auth.ExtractBearerToken(h)
	require.NoError(t, err)
	assert.Equal(t, token, got)
}
