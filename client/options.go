package client

import (
	"io"

	"httpwire/wire/parser"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

type Options struct {
	// ResponseBufferSize is the size of the pooled buffer each receive
	// cycle checks out.
	ResponseBufferSize int `json:"response_buffer_size"`

	Parser parser.Options `json:"parser"`
}

var DefaultOptions = Options{
	ResponseBufferSize: 8 << 10,
	Parser:             parser.DefaultOptions,
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadOptions reads options as JSON. Fields absent from the document keep
// their default values.
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions
	if err := json.NewDecoder(r).Decode(&opts); err != nil {
		return Options{}, errors.Wrap(err, "decoding options")
	}

	if opts.ResponseBufferSize <= 0 {
		opts.ResponseBufferSize = DefaultOptions.ResponseBufferSize
	}

	return opts, nil
}
