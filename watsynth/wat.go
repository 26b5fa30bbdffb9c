package watsynth

import (
	"github.com/jmccay-work/cfbc2wasm/watsynth/internal/encoder"
	"github.com/jmccay-work/cfbc2wasm/watsynth/internal/parser"
	"github.com/jmccay-work/cfbc2wasm/watsynth/internal/token"
)

func Compile(source string) ([]byte, error) {
	tokens := token.Tokenize(source)
	p := parser.New(tokens)
	mod, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return encoder.Encode(mod), nil
}
