package pledge

import (
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// urlRule is one compiled URL pattern: scheme match (empty = any),
// host glob with '.' as separator, path glob with '/'.
type urlRule struct {
	scheme string
	host   glob.Glob
	path   glob.Glob
}

// URLGranter matches URL-valued permissions scheme/host/path-aware: a
// pattern's host part matches with '.' as a separator (so
// `*.example.com` does not match `evil-example.com`), its path part
// with '/'. A pattern without a scheme applies to any scheme; a pattern
// without a path implies every path.
func URLGranter() Granter {
	type stored struct {
		rules []urlRule
	}
	return func(req *Request) error {
		st, _ := req.Stored.(*stored)
		if st == nil {
			st = &stored{}
		}
		switch req.Op {
		case OpGrant, OpUpdate:
			r, err := compileURLRule(req.Value)
			if err != nil {
				return err
			}
			st.rules = append(st.rules, r)
			req.Stored = st
		case OpCheck:
			u, err := url.Parse(req.Value)
			if err != nil {
				return nil
			}
			path := u.Path
			if path == "" {
				path = "/"
			}
			for _, r := range st.rules {
				if r.scheme != "" && r.scheme != u.Scheme {
					continue
				}
				if r.host.Match(u.Hostname()) && r.path.Match(path) {
					req.Granted = true
					break
				}
			}
		}
		return nil
	}
}

func compileURLRule(pattern string) (urlRule, error) {
	var r urlRule
	rest := pattern
	if i := strings.Index(rest, "://"); i >= 0 {
		r.scheme, rest = rest[:i], rest[i+3:]
	}
	hostPat, pathPat := rest, "/**"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostPat, pathPat = rest[:i], rest[i:]
	}
	host, err := glob.Compile(hostPat, '.')
	if err != nil {
		return r, err
	}
	path, err := glob.Compile(pathPat, '/')
	if err != nil {
		return r, err
	}
	r.host, r.path = host, path
	return r, nil
}
