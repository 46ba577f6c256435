package web

import (
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "один два", truncateWords("один два", 2))
	assert.Equal(t, "один два …", truncateWords("один два три", 2))
}

func TestLinebreaksbr(t *testing.T) {
	assert.Equal(t, template.HTML("a<br>b &lt;i&gt;"), linebreaksbr("a\r\nb <i>"))
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "?page=2", pageURL(2, ""))
	assert.Equal(t, "?page=3&q=%D0%BA%D0%BE%D1%82", pageURL(3, "кот"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "5 марта 2024", formatDate(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))
}
