package tree

// MaxNesting bounds bracket nesting handed to the JSON parser. It sits well
// below the parser's own recursion limit.
const MaxNesting = 1024

// nesting is what a byte scan learns about a payload without parsing it
type nesting struct {
	// brackets is the deepest object/array nesting outside strings
	brackets int
	// nodes is the deepest node chain implied by nested "children" arrays
	nodes int
}

// scanNesting walks data once, tracking brackets outside strings and which
// arrays open under a "children" key. It does not validate syntax.
func scanNesting(data []byte) nesting {
	type level struct {
		object    bool
		children  bool
		expectKey bool
		lastKey   []byte
	}

	var (
		out       nesting
		stack     []level
		childDeep int
		inString  bool
		escaped   bool
		strStart  int
	)
	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
				if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectKey {
					stack[n-1].lastKey = data[strStart:i]
				}
			}
			continue
		}

		switch b {
		case '"':
			inString, strStart = true, i+1
		case '{':
			stack = append(stack, level{object: true, expectKey: true})
		case '[':
			children := false
			if n := len(stack); n > 0 && stack[n-1].object && string(stack[n-1].lastKey) == "children" {
				children = true
				childDeep++
				if childDeep+1 > out.nodes {
					out.nodes = childDeep + 1
				}
			}
			stack = append(stack, level{children: children})
		case '}', ']':
			if n := len(stack); n > 0 {
				if stack[n-1].children {
					childDeep--
				}
				stack = stack[:n-1]
			}
		case ':':
			if n := len(stack); n > 0 && stack[n-1].object {
				stack[n-1].expectKey = false
			}
		case ',':
			if n := len(stack); n > 0 && stack[n-1].object {
				stack[n-1].expectKey = true
				stack[n-1].lastKey = nil
			}
		}
		if len(stack) > out.brackets {
			out.brackets = len(stack)
		}
	}
	if out.nodes == 0 && out.brackets > 0 {
		out.nodes = 1
	}
	return out
}
