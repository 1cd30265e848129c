package model

import (
	"fmt"
	"strings"
)

// ComponentName names a launchable class inside a package.
type ComponentName struct {
	Package string
	Class   string
}

// ParseComponent accepts "pkg/Class" or the short form "pkg/.Class".
func ParseComponent(s string) (ComponentName, error) {
	pkg, cls, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || pkg == "" || cls == "" {
		return ComponentName{}, fmt.Errorf("invalid component %q", s)
	}
	if strings.HasPrefix(cls, ".") {
		cls = pkg + cls
	}
	return ComponentName{Package: pkg, Class: cls}, nil
}

func MustParseComponent(s string) ComponentName {
	cn, err := ParseComponent(s)
	if err != nil {
		panic(err)
	}
	return cn
}

func (c ComponentName) IsZero() bool {
	return c.Package == "" || c.Class == ""
}

// ClassName returns the fully qualified class name.
func (c ComponentName) ClassName() string {
	return c.Class
}

// Flatten renders the component, abbreviating classes that live inside the package.
func (c ComponentName) Flatten() string {
	if c.IsZero() {
		return ""
	}
	if strings.HasPrefix(c.Class, c.Package+".") {
		return c.Package + "/" + strings.TrimPrefix(c.Class, c.Package)
	}
	return c.Package + "/" + c.Class
}

func (c ComponentName) String() string {
	return c.Flatten()
}
