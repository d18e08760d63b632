// utilitário pequeno para formatação consistente de valores em headers.

package ratelimit

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatUnix(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }
