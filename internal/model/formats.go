package model

import "strings"

// DefaultFileNameFormat is used for new assignments and when none is stored.
const DefaultFileNameFormat = "{学号}_{姓名}_实验{作业编号}.docx"

// Placeholders understood by Formats.Expand.
const (
	PlaceholderStudentID  = "{学号}"
	PlaceholderName       = "{姓名}"
	PlaceholderHomeworkID = "{作业编号}"
)

// DefaultFormats returns a fresh single-entry list.
func DefaultFormats() Formats { return Formats{DefaultFileNameFormat} }

// Add appends the default pattern.
func (f *Formats) Add() {
	*f = append(*f, DefaultFileNameFormat)
}

// Remove deletes the pattern at i. The list never drops below one entry;
// removing the last one, or an index out of range, is a no-op.
func (f *Formats) Remove(i int) bool {
	if len(*f) <= 1 || i < 0 || i >= len(*f) {
		return false
	}
	*f = append((*f)[:i], (*f)[i+1:]...)
	return true
}

// Set replaces the pattern at i. Pattern syntax is not validated.
func (f Formats) Set(i int, pattern string) bool {
	if i < 0 || i >= len(f) {
		return false
	}
	f[i] = pattern
	return true
}

// Expand substitutes the placeholders of every pattern. Patterns carrying an
// unknown placeholder are skipped.
func (f Formats) Expand(studentID, name string, homeworkID ID) []string {
	r := strings.NewReplacer(
		PlaceholderStudentID, studentID,
		PlaceholderName, name,
		PlaceholderHomeworkID, homeworkID.String(),
	)
	out := make([]string, 0, len(f))
	for _, pattern := range f {
		if hasUnknownPlaceholder(pattern) {
			continue
		}
		out = append(out, r.Replace(pattern))
	}
	return out
}

// Match reports whether filename equals one of the expanded patterns.
func (f Formats) Match(filename, studentID, name string, homeworkID ID) bool {
	for _, expected := range f.Expand(studentID, name, homeworkID) {
		if filename == expected {
			return true
		}
	}
	return false
}

func hasUnknownPlaceholder(pattern string) bool {
	rest := pattern
	for _, known := range []string{PlaceholderStudentID, PlaceholderName, PlaceholderHomeworkID} {
		rest = strings.ReplaceAll(rest, known, "")
	}
	open := strings.IndexByte(rest, '{')
	return open >= 0 && strings.IndexByte(rest[open:], '}') > 0
}
