package yuv

import (
	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/internal/parallel"
)

// minBandRows keeps bands large enough that scheduling cost stays well
// below conversion cost.
const minBandRows = 16

// ConvertParallel is Convert split into row bands on pool. The output is
// identical to Convert.
func ConvertParallel(pool *parallel.Pool, dst []byte, f *frame.RawFrame) error {
	if err := check(dst, f); err != nil {
		return err
	}
	pool.Bands(f.Height, minBandRows, func(start, end int) {
		convertRows(dst, f, start, end)
	})
	return nil
}
