package integrity

import "strings"

// MerkleRoot folds hex leaf digests into a single root.
//
// Leaves are lowercased. An odd level duplicates its last node, and each parent
// is the SHA-256 of the concatenated hex strings of its children. No leaves
// yield "", one leaf is its own root.
func MerkleRoot(hexHashes []string) string {
	if len(hexHashes) == 0 {
		return ""
	}

	level := make([]string, len(hexHashes))
	for i, h := range hexHashes {
		level[i] = strings.ToLower(h)
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, HashBytes([]byte(level[i]+level[i+1])))
		}
		level = next
	}
	return level[0]
}
