package util

import "time"

func TimePtr(v time.Time) *time.Time { return &v }
