package suites

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/log"
)

const (
	suiteElement = "TestSuite"
	suiteNameKey = "Name"
	checkedKey   = "IsChecked"

	emailElement  = "Emaildetails"
	emailCheckKey = "EmailDescriptionCheck"
	emailTextKey  = "EmailDescriptionText"

	checked   = "True"
	unchecked = "False"
)

// Editor rewrites attributes of a test-runner configuration file. Every
// operation reads the file, edits attributes only and writes the whole file
// back, even when nothing matched. A file that fails to parse is left as is.
type Editor struct {
	fs   afero.Fs
	path string
	log  *zap.SugaredLogger
}

func NewEditor(fs afero.Fs, path string, logger *zap.SugaredLogger) *Editor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Editor{fs: fs, path: path, log: logger}
}

func (e *Editor) Path() string {
	return e.path
}

// UncheckAll sets IsChecked="False" on every TestSuite below the root and on
// everything inside one. It returns the number of elements touched.
func (e *Editor) UncheckAll() (int, error) {
	touched := 0
	err := e.update(false, func(doc *document) {
		doc.edit(func(el *element) {
			if !inSuite(el) {
				return
			}
			el.setAttr(checkedKey, unchecked)
			touched++
		})
	})
	return touched, err
}

// CheckSuite sets IsChecked="True" on the first TestSuite named name and on
// every element inside it. It reports whether the suite was found.
func (e *Editor) CheckSuite(name string) (bool, error) {
	var (
		found     bool
		openDepth = -1
	)

	err := e.update(false, func(doc *document) {
		doc.edit(func(el *element) {
			if openDepth >= 0 && el.depth() <= openDepth {
				// left the selected suite
				openDepth = -1
			}
			if !found && el.depth() > 0 && el.start.Name.Local == suiteElement {
				if v, ok := el.attr(suiteNameKey); ok && v == name {
					found = true
					openDepth = el.depth()
				}
			}
			if openDepth >= 0 {
				el.setAttr(checkedKey, checked)
			}
		})
	})
	if err != nil {
		return false, err
	}

	e.log.Debugw("check suite", "suite", name, "found", found)
	return found, nil
}

// UpdateEmailDescription enables the email description on every Emaildetails
// element directly under the root and sets its text. The file is written
// with an XML declaration.
func (e *Editor) UpdateEmailDescription(text string) (int, error) {
	updated := 0
	err := e.update(true, func(doc *document) {
		doc.edit(func(el *element) {
			if el.depth() != 1 || el.start.Name.Local != emailElement {
				return
			}
			el.setAttr(emailCheckKey, checked)
			el.setAttr(emailTextKey, text)
			updated++
		})
	})
	return updated, err
}

// SuiteNames lists the Name of every TestSuite in document order.
func (e *Editor) SuiteNames() ([]string, error) {
	doc, err := e.read()
	if err != nil {
		return nil, err
	}

	var names []string
	doc.edit(func(el *element) {
		if el.depth() > 0 && el.start.Name.Local == suiteElement {
			if v, ok := el.attr(suiteNameKey); ok {
				names = append(names, v)
			}
		}
	})
	return names, nil
}

func inSuite(el *element) bool {
	if el.depth() > 0 && el.start.Name.Local == suiteElement {
		return true
	}
	// ancestors[0] is the root, which does not count as a suite
	for _, a := range el.ancestors[min(1, len(el.ancestors)):] {
		if a.Name.Local == suiteElement {
			return true
		}
	}
	return false
}

func (e *Editor) read() (*document, error) {
	data, err := afero.ReadFile(e.fs, e.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.path, err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.path, err)
	}
	return doc, nil
}

func (e *Editor) update(withDeclaration bool, fn func(doc *document)) error {
	doc, err := e.read()
	if err != nil {
		return err
	}

	fn(doc)

	perm := os.FileMode(0644)
	if info, err := e.fs.Stat(e.path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := afero.WriteFile(e.fs, e.path, doc.bytes(withDeclaration), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.path, err)
	}
	return nil
}
