package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/testrig/packages/db"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a test suite (one test module)
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single test execution
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a test error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats a run's executions as JUnit XML, grouping test
// cases into one suite per test module
type JUnitFormatter struct {
	writer io.Writer
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// Write renders the run's executions as a testsuites document.
func (f *JUnitFormatter) Write(runID string, execs []*db.ExecutionRow) error {
	byModule := make(map[string]*JUnitTestSuite)
	var order []string

	for _, e := range execs {
		suite, ok := byModule[e.TestModule]
		if !ok {
			suite = &JUnitTestSuite{Name: e.TestModule}
			byModule[e.TestModule] = suite
			order = append(order, e.TestModule)
		}

		tc := JUnitTestCase{
			Name:      e.TestFunction,
			ClassName: e.TestModule,
			Time:      e.Duration,
		}

		switch e.Result {
		case "passed", "xfailed":
			// Success cases carry no child element.
		case "skipped", "xpassed", "rerun":
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: e.Result}
		case "error":
			suite.Errors++
			tc.Error = &JUnitError{
				Message: firstLine(e.Failure),
				Type:    e.FailureType,
				Content: e.Failure,
			}
		default:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: firstLine(e.Failure),
				Type:    e.FailureType,
				Content: e.Failure,
			}
		}

		suite.Tests++
		suite.Time += e.Duration
		suite.TestCases = append(suite.TestCases, tc)
	}

	root := JUnitTestSuites{
		Name:      runID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, name := range order {
		suite := byModule[name]
		root.Tests += suite.Tests
		root.Failures += suite.Failures
		root.Errors += suite.Errors
		root.Skipped += suite.Skipped
		root.Time += suite.Time
		root.TestSuites = append(root.TestSuites, *suite)
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(root)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
