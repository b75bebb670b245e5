package core

import "errors"

var ErrTemplateNotFound = errors.New("clovis: template not found")

// IsNotFoundError reports whether err is, or wraps, a missing template.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
