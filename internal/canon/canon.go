// Package canon rewrites entity names produced by different back-ends into one
// grammar so edge sets compare by logical identity:
//
//	file.py/module (Module)
//	file.py/CLASSES/C (Class)
//	file.py/CLASSES/C/CONSTRUCTORS/__init__ (Constructor)
//	file.py/CLASSES/C/METHODS/m (Method)
//	file.py/CLASSES/C/FIELDS/f (Field)
//	file.py/FUNCTIONS/f (Function)
//
// Every function here is total: names it does not recognize come back unchanged.
package canon

import (
	"path"
	"strings"
)

// Python canonicalizes structured (`file.py/C/methods/m (Method)`), flat
// (`file.py/+METHODS/C/m (Method)`) and `file.py::f` spellings. Only the part
// after the file is rewritten, so directory names never match a marker.
func Python(name string) string {
	if file, rest, ok := strings.Cut(name, ".py::"); ok {
		return file + ".py/FUNCTIONS/" + strings.Trim(rest, "/") + " (Function)"
	}
	file, rest, ok := strings.Cut(name, ".py/")
	if !ok {
		return name
	}
	file += ".py"

	if rest == "self (File)" {
		return file + "/module (Module)"
	}

	if strings.HasPrefix(rest, "+SUBCLASSES/") {
		if parts := nonEmpty(strings.Split(rest, "/")); len(parts) >= 3 {
			return Python(file + "/" + strings.Join(parts[2:], "/"))
		}
	}

	if strings.HasSuffix(rest, " (Class)") {
		if outer, cls, ok := strings.Cut(rest, "-self "); ok && (outer == "" || strings.HasSuffix(outer, "/")) {
			cls = strings.TrimSpace(strings.TrimSuffix(cls, " (Class)"))
			if outer != "" {
				cls = classPath(outer) + "." + cls
			}
			return file + "/CLASSES/" + cls + " (Class)"
		}
	}

	if tail, ok := strings.CutPrefix(rest, "+FUNCTIONS/"); ok {
		return file + "/FUNCTIONS/" + tail
	}
	for _, seg := range []string{"METHODS", "FIELDS", "CONSTRUCTORS"} {
		tail, ok := strings.CutPrefix(rest, "+"+seg+"/")
		if !ok {
			continue
		}
		if cls, member, ok := strings.Cut(tail, "/"); ok {
			return file + "/CLASSES/" + cls + "/" + seg + "/" + member
		}
		return name
	}

	if tail, ok := strings.CutPrefix(rest, "functions/"); ok {
		return file + "/FUNCTIONS/" + tail
	}

	if cls, ok := strings.CutSuffix(rest, "/self (Class)"); ok {
		return file + "/CLASSES/" + classPath(cls) + " (Class)"
	}

	// the earliest member folder splits class path from member
	at, seg := -1, ""
	for _, s := range []string{"constructors", "methods", "fields"} {
		if i := strings.Index(rest, "/"+s+"/"); i >= 0 && (at < 0 || i < at) {
			at, seg = i, s
		}
	}
	if at >= 0 {
		member := rest[at+len(seg)+2:]
		return file + "/CLASSES/" + classPath(rest[:at]) + "/" + strings.ToUpper(seg) + "/" + member
	}

	return name
}

// classPath joins a slash-separated class path with dots and drops the
// synthetic nesting folders some exporters emit.
func classPath(p string) string {
	cls := strings.Join(nonEmpty(strings.Split(p, "/")), ".")
	cls = strings.ReplaceAll(cls, ".inner_classes.", ".")
	if i := strings.LastIndex(cls, ".subclasses."); i >= 0 {
		cls = cls[i+len(".subclasses."):]
	}
	return cls
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Java canonicalizes Java exporter names by dropping the redundant outer class
// segment that repeats the file's base name.
func Java(name string) string {
	file, rest, ok := strings.Cut(name, ".java/")
	if !ok {
		return name
	}
	file += ".java"
	base := strings.TrimSuffix(path.Base(file), ".java")

	dropOuter := func(p string) string {
		parts := nonEmpty(strings.Split(p, "/"))
		if len(parts) >= 2 && parts[0] == base {
			parts = parts[1:]
		}
		return strings.Join(parts, "/")
	}

	if rest == "self (File)" {
		return file + "/module (Module)"
	}
	if strings.HasSuffix(rest, "/self (Class)") {
		return file + "/" + dropOuter(strings.TrimSuffix(rest, "/self (Class)")) + " (Class)"
	}
	if strings.HasSuffix(rest, " (Class)") {
		return file + "/" + dropOuter(strings.TrimSuffix(rest, " (Class)")) + " (Class)"
	}
	for _, seg := range []string{"/constructors/", "/methods/", "/fields/"} {
		if before, after, ok := strings.Cut(rest, seg); ok {
			return file + "/" + dropOuter(before) + seg + after
		}
	}
	return name
}
