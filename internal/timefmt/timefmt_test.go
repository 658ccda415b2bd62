package timefmt

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"festsched/internal/model"
)

func TestFormatShortUTC(t *testing.T) {
	f := New("UTC", StyleShort)
	// 1619664631 = 2021-04-29T02:50:31Z
	assert.Equal(t, "2:50 AM", f.Format(1619664631))
	assert.Equal(t, StyleShort, f.Style())
}

func TestFormatFullUTC(t *testing.T) {
	f := New("UTC", "FULL")
	assert.Equal(t, "Thu, 29 Apr 2021 02:50:31 +0000", f.Format(1619664631))
	assert.Equal(t, StyleFull, f.Style())
}

func TestFormatInZone(t *testing.T) {
	f := New("America/Chicago", StyleShort)
	assert.Equal(t, "9:50 PM", f.Format(1619664631))
	assert.Equal(t, "America/Chicago", f.Location().String())
}

func TestUnknownInputsFallBack(t *testing.T) {
	f := New("Not/AZone", "medium")
	assert.Equal(t, time.Local, f.Location())
	assert.Equal(t, StyleShort, f.Style())
	assert.Empty(t, f.Format(model.Instant(math.NaN())))
}
