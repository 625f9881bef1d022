package launcher

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNoComponent is returned when an intent names no explicit component.
var ErrNoComponent = errors.New("intent has no component")

// ComponentName identifies an application activity or widget provider.
type ComponentName struct {
	Package string
	Class   string
}

// ParseComponentName parses "pkg/cls" or the short form "pkg/.Cls".
// Both halves are NFC-normalized so that identical components always
// produce identical stream keys.
func ParseComponentName(s string) (ComponentName, error) {
	sep := strings.IndexByte(s, '/')
	if sep <= 0 || sep+1 >= len(s) {
		return ComponentName{}, fmt.Errorf("invalid component name %q", s)
	}

	pkg := norm.NFC.String(s[:sep])
	cls := norm.NFC.String(s[sep+1:])
	if strings.HasPrefix(cls, ".") {
		cls = pkg + cls
	}
	return ComponentName{Package: pkg, Class: cls}, nil
}

// IsZero reports whether c is the empty component.
func (c ComponentName) IsZero() bool {
	return c.Package == "" && c.Class == ""
}

// Flatten returns the long form "pkg/full.Class".
func (c ComponentName) Flatten() string {
	return c.Package + "/" + c.Class
}

// FlattenShort returns "pkg/.Cls" when the class lives in the package,
// otherwise the long form. This is the identity used in stream keys.
func (c ComponentName) FlattenShort() string {
	if strings.HasPrefix(c.Class, c.Package) && len(c.Class) > len(c.Package) && c.Class[len(c.Package)] == '.' {
		return c.Package + "/" + c.Class[len(c.Package):]
	}
	return c.Flatten()
}

// String implements fmt.Stringer.
func (c ComponentName) String() string {
	return c.FlattenShort()
}

// ParseIntentComponent extracts the target component from a stored launch
// intent descriptor of the form
//
//	#Intent;action=...;component=pkg/.Cls;end
//
// Anything before "#Intent;" (a data URI) is ignored. A descriptor without a
// component returns ErrNoComponent.
func ParseIntentComponent(intent string) (ComponentName, error) {
	i := strings.Index(intent, "#Intent;")
	if i < 0 {
		return ComponentName{}, fmt.Errorf("intent %q: missing #Intent; section", intent)
	}
	body := intent[i+len("#Intent;"):]

	var component string
	terminated := false
	for _, part := range strings.Split(body, ";") {
		if part == "end" {
			terminated = true
			break
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if k == "component" {
			decoded, err := url.PathUnescape(v)
			if err != nil {
				return ComponentName{}, fmt.Errorf("intent %q: component: %w", intent, err)
			}
			component = decoded
		}
	}
	if !terminated {
		return ComponentName{}, fmt.Errorf("intent %q: missing end", intent)
	}
	if component == "" {
		return ComponentName{}, ErrNoComponent
	}

	cn, err := ParseComponentName(component)
	if err != nil {
		return ComponentName{}, fmt.Errorf("intent %q: %w", intent, err)
	}
	return cn, nil
}

// FormatIntent builds a launch intent descriptor for cn.
func FormatIntent(cn ComponentName) string {
	return "#Intent;action=android.intent.action.MAIN;category=android.intent.category.LAUNCHER;component=" +
		cn.FlattenShort() + ";end"
}
