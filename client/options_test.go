package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Options
		wantErr  bool
	}{
		{
			desc:     "empty document keeps defaults",
			input:    `{}`,
			expected: DefaultOptions,
		},
		{
			desc:  "overrides buffer size",
			input: `{"response_buffer_size": 1024}`,
			expected: func() Options {
				opts := DefaultOptions
				opts.ResponseBufferSize = 1024
				return opts
			}(),
		},
		{
			desc:  "overrides parser options",
			input: `{"parser": {"header_cache_size": 16, "allow_sole_lf": true}}`,
			expected: func() Options {
				opts := DefaultOptions
				opts.Parser.HeaderCacheSize = 16
				opts.Parser.AllowSoleLF = true
				return opts
			}(),
		},
		{
			desc:  "non-positive buffer size falls back to default",
			input: `{"response_buffer_size": -1}`,
			expected: func() Options {
				opts := DefaultOptions
				opts.ResponseBufferSize = DefaultOptions.ResponseBufferSize
				return opts
			}(),
		},
		{
			desc:    "malformed document",
			input:   `{"response_buffer_size": `,
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			opts, err := LoadOptions(strings.NewReader(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, opts)
		})
	}
}
