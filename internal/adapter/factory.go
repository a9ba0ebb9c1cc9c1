package adapter

import (
	"fmt"

	crawlerrors "sjlee133/academyradar/pkg/errors"
)

// Create builds a fresh adapter for the source type. Every call returns a
// new instance; adapters never share state.
func Create(sourceType, sourceURL string, opts Options) (Adapter, error) {
	switch sourceType {
	case "naver_cafe":
		return NewNaverCafeAdapter(sourceURL, opts), nil
	case "daum_cafe":
		return NewDaumCafeAdapter(sourceURL, opts), nil
	case "dcinside":
		return NewDCInsideAdapter(sourceURL, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", crawlerrors.ErrUnsupportedSourceType, sourceType)
	}
}
