package bookkeeping

import (
	"strings"

	"github.com/google/uuid"
)

// NewUID returns a new random identifier, 32 lowercase hexadecimal digits.
func NewUID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
