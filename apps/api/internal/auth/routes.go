package auth

import "fmt"

// RouteSets are the glob lists that decide which policy applies to a path.
// They are configuration, fixed for the life of the process.
type RouteSets struct {
	AuthPassthrough         []string
	Protected               []string
	RedirectIfAuthenticated []string
	// Admin paths additionally require an admin record. Listing a path here
	// without also listing it as Protected has no effect.
	Admin []string
}

// Classification reports every set a path belongs to. The flags are
// independent; nothing stops a path from being in more than one set.
type Classification struct {
	IsAuthPassthrough  bool
	IsProtected        bool
	IsRedirectIfAuthed bool
	IsAdminOnly        bool
}

type Classifier struct {
	passthrough      []*Pattern
	protected        []*Pattern
	redirectIfAuthed []*Pattern
	admin            []*Pattern
}

func NewClassifier(sets RouteSets) (*Classifier, error) {
	var (
		c   Classifier
		err error
	)
	if c.passthrough, err = compileAll("auth passthrough", sets.AuthPassthrough); err != nil {
		return nil, err
	}
	if c.protected, err = compileAll("protected", sets.Protected); err != nil {
		return nil, err
	}
	if c.redirectIfAuthed, err = compileAll("redirect-if-authenticated", sets.RedirectIfAuthenticated); err != nil {
		return nil, err
	}
	if c.admin, err = compileAll("admin", sets.Admin); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Classifier) Classify(path string) Classification {
	return Classification{
		IsAuthPassthrough:  matchAny(c.passthrough, path),
		IsProtected:        matchAny(c.protected, path),
		IsRedirectIfAuthed: matchAny(c.redirectIfAuthed, path),
		IsAdminOnly:        matchAny(c.admin, path),
	}
}

func compileAll(name string, globs []string) ([]*Pattern, error) {
	patterns := make([]*Pattern, 0, len(globs))
	for _, g := range globs {
		p, err := CompilePattern(g)
		if err != nil {
			return nil, fmt.Errorf("%s routes: %w", name, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func matchAny(patterns []*Pattern, path string) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
