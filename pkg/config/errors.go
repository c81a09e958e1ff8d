package config

import (
	"errors"
	"fmt"
)

var ErrConfig = errors.New("bad config")

func ErrBadValue(key string, v any) error { return fmt.Errorf("%w: %v = %v", ErrConfig, key, v) }
