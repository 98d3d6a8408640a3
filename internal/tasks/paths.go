// Package tasks implements the developer task runner for spend-pi: a catalog of
// tasks that wrap external formatting, linting, security, test, docs and
// packaging tools, executed sequentially with their pre-tasks.
package tasks

import (
	"fmt"
	"path/filepath"
)

const (
	ProjectName       = "spend-pi"
	DefaultSourceDir  = "api"
	DefaultTestDir    = "tests"
	CoverageFailUnder = 0
	PyPIIndexURL      = "https://pypi.org/simple/"
	PyPIUploadURL     = "https://upload.pypi.org/legacy/"
	PyPIRepository    = "pypi_upload"
)

// Paths holds every location the tasks read or clean, all absolute
type Paths struct {
	Root                   string
	BinDir                 string
	TestDir                string
	SourceDir              string
	ToxDir                 string
	JUnitXMLFile           string
	CoverageXMLFile        string
	CoverageHTMLDir        string
	CoverageHTMLFile       string
	DocsDir                string
	DocsSourceDir          string
	DocsBuildDir           string
	DocsIndex              string
	SafetyRequirementsFile string
}

// NewPaths resolves the layout below root. source and tests are relative to root.
func NewPaths(root, source, tests string) (Paths, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if source == "" {
		source = DefaultSourceDir
	}
	if tests == "" {
		tests = DefaultTestDir
	}

	bin := filepath.Join(abs, "bin")
	docs := filepath.Join(abs, "docs")
	coverageHTML := filepath.Join(bin, "coverage_html")
	docsBuild := filepath.Join(docs, "_build")

	return Paths{
		Root:                   abs,
		BinDir:                 bin,
		TestDir:                filepath.Join(abs, tests),
		SourceDir:              filepath.Join(abs, source),
		ToxDir:                 filepath.Join(abs, ".tox"),
		JUnitXMLFile:           filepath.Join(bin, "report.xml"),
		CoverageXMLFile:        filepath.Join(bin, "coverage.xml"),
		CoverageHTMLDir:        coverageHTML,
		CoverageHTMLFile:       filepath.Join(coverageHTML, "index.html"),
		DocsDir:                docs,
		DocsSourceDir:          filepath.Join(docs, "source"),
		DocsBuildDir:           docsBuild,
		DocsIndex:              filepath.Join(docsBuild, "index.html"),
		SafetyRequirementsFile: filepath.Join(bin, "safety_requirements.txt"),
	}, nil
}

// CodeDirs are the directories formatters and linters run on
func (p Paths) CodeDirs() []string {
	return []string{p.SourceDir, p.TestDir}
}
