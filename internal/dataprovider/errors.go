package dataprovider

import (
	"os"
)

var (
	ErrExist    = os.ErrExist
	ErrNotExist = os.ErrNotExist
)
