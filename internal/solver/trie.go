package solver

// Trie is a rune-keyed prefix tree over a normalized word list. It exists so
// the board walk can descend letter-by-letter and abandon a branch the moment
// no dictionary entry shares the explored prefix.
type Trie struct {
	root *trieNode
	size int
}

type trieNode struct {
	children map[rune]*trieNode
	word     string // non-empty marks a complete dictionary word
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// BuildTrie indexes the given words. Entries shorter than MinWordLength are
// skipped; callers pass already-normalized words.
func BuildTrie(words []string) *Trie {
	t := &Trie{root: newTrieNode()}
	for _, w := range words {
		if len([]rune(w)) < MinWordLength {
			continue
		}
		t.insert(w)
	}
	return t
}

func (t *Trie) insert(word string) {
	n := t.root
	for _, r := range word {
		child, ok := n.children[r]
		if !ok {
			child = newTrieNode()
			n.children[r] = child
		}
		n = child
	}
	if n.word == "" {
		n.word = word
		t.size++
	}
}

// Size reports the number of distinct indexed words.
func (t *Trie) Size() int {
	return t.size
}

// descend walks a node through every rune of a cell letter (cells may hold
// multi-rune letters such as "QU"). Returns nil when the prefix dies.
func descend(n *trieNode, letter string) *trieNode {
	for _, r := range letter {
		next, ok := n.children[r]
		if !ok {
			return nil
		}
		n = next
	}
	return n
}
