package cooplock

import (
	"fmt"
	"strings"
)

// renameSeparator joins source and destination in rename log lines. Keys
// containing the separator itself are not representable.
const renameSeparator = " -> "

// RenamePair is one planned copy in a rename operation: the source key and
// the destination key it maps to.
type RenamePair struct {
	Src string
	Dst string
}

// ============================================================================
// Log Codec
// ============================================================================

// EncodeDeleteLog serializes a delete plan, one object key per line in the
// order the items were enumerated. Directory markers appear as keys with a
// trailing slash like any other item.
func EncodeDeleteLog(paths []string) []byte {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// DecodeDeleteLog parses delete log content back into the planned keys.
// Blank lines are ignored.
func DecodeDeleteLog(data []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}

// EncodeRenameLog serializes a rename plan, one "src -> dst" mapping per
// line in copy order.
func EncodeRenameLog(pairs []RenamePair) []byte {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.Src)
		b.WriteString(renameSeparator)
		b.WriteString(p.Dst)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// DecodeRenameLog parses rename log content back into the planned copies.
// Blank lines are ignored.
//
// Returns:
//   - []RenamePair: Planned copies in log order
//   - error: ErrMalformedLog for a line without the separator
func DecodeRenameLog(data []byte) ([]RenamePair, error) {
	var pairs []RenamePair
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}

		i := strings.Index(line, renameSeparator)
		if i < 0 {
			return nil, fmt.Errorf("%w: rename line %q has no separator", ErrMalformedLog, line)
		}

		pairs = append(pairs, RenamePair{
			Src: line[:i],
			Dst: line[i+len(renameSeparator):],
		})
	}
	return pairs, nil
}
