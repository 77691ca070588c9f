package pledge

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// FSGranter is the file-system granter: sub-permissions read/write,
// values interpreted as glob patterns against
// canonicalized paths (resolving symlinks and `..`). A global grant (no
// sub) implies all sub-permissions.
func FSGranter() Granter {
	type stored struct {
		read, write []glob.Glob
	}
	return func(req *Request) error {
		st, _ := req.Stored.(*stored)
		if st == nil {
			st = &stored{}
		}
		switch req.Op {
		case OpGrant, OpUpdate:
			g, err := glob.Compile(req.Value)
			if err != nil {
				return err
			}
			switch req.Sub {
			case "read":
				st.read = append(st.read, g)
			case "write":
				st.write = append(st.write, g)
			case "":
				st.read = append(st.read, g)
				st.write = append(st.write, g)
			default:
				return fmt.Errorf("pledge: fs has no sub-permission %q", req.Sub)
			}
			req.Stored = st
		case OpCheck:
			path := canonicalize(req.Value)
			var set []glob.Glob
			switch req.Sub {
			case "read":
				set = st.read
			case "write":
				set = st.write
			default:
				set = append(append([]glob.Glob{}, st.read...), st.write...)
			}
			for _, g := range set {
				if g.Match(path) {
					req.Granted = true
					break
				}
			}
		}
		return nil
	}
}

// canonicalize resolves `..`/symlinks best-effort; failures fall back
// to the cleaned path so a check against an unresolvable (e.g. not-yet-
// created) path still has deterministic semantics.
func canonicalize(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
