package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		url       string
		wantErr   bool
		errString string
	}{
		{name: "valid url", url: "redis://" + mr.Addr() + "/0"},
		{name: "malformed url", url: "http://nope", wantErr: true, errString: "failed to parse redis url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := NewClient(&Config{URL: tt.url, PoolSize: 4}, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
			defer rc.Close()

			require.NoError(t, rc.Set(context.Background(), "k", "v", 0).Err())
			got, err := mr.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "v", got)
		})
	}
}
