// Package frameworks lists the test frameworks scripts can be generated for.
package frameworks

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// ErrUnknownFramework is returned for a choice or key that is not in the catalogue
var ErrUnknownFramework = errors.New("unknown framework")

// Framework keys
const (
	KeySelenium      = "selenium"
	KeyCypress       = "cypress"
	KeyPlaywrightPy  = "playwright-py"
	KeyPlaywrightJS  = "playwright-js"
	KeyRequests      = "requests"
	KeyGoRod         = "go-rod"
	DefaultPromptKey = KeySelenium
)

var builtin = []models.Framework{
	{
		Choice: "1", Key: KeySelenium, Name: "Selenium (Python)", Language: "python", Extension: ".py",
		Prompt: "Generate modern Selenium 4 WebDriver code in Python using Page Object Model pattern. " +
			"Use WebDriverWait for explicit waits and locators using By class. " +
			"Include proper setup/teardown and clear comments.",
	},
	{
		Choice: "2", Key: KeyCypress, Name: "Cypress (JavaScript)", Language: "javascript", Extension: ".js",
		Prompt: "Generate Cypress test scripts in JavaScript with best practices. " +
			"Use fixtures if needed for test data. Include clear comments and assertions.",
	},
	{
		Choice: "3", Key: KeyPlaywrightPy, Name: "Playwright (Python)", Language: "python", Extension: ".py",
		Prompt: "Generate Playwright test scripts in Python. " +
			"Use the page object pattern and include proper assertions. " +
			"Include necessary imports and clear comments.",
	},
	{
		Choice: "4", Key: KeyPlaywrightJS, Name: "Playwright (JavaScript)", Language: "javascript", Extension: ".js",
		Prompt: "Generate Playwright test scripts in JavaScript. " +
			"Use modern async/await syntax. " +
			"Include proper setup and assertions with clear comments.",
	},
	{
		Choice: "5", Key: KeyRequests, Name: "API Testing (Python - requests)", Language: "python", Extension: ".py",
		Prompt: "Generate API test scripts in Python using requests library. " +
			"Include proper authentication if needed, status code checks, " +
			"and response validation. Use pytest style assertions.",
	},
	{
		Choice: "6", Key: KeyGoRod, Name: "Go Rod (Go)", Language: "go", Extension: ".go",
		Prompt: "Generate Go Rod browser automation code as a Go test (package main_test, func TestXxx(t *testing.T)). " +
			"Use MustWaitVisible before interacting, page.WaitNavigation around form submission, " +
			"and t.Fatalf for failed assertions. Include clear comments.",
	},
}

// Catalog is an ordered, indexed set of frameworks
type Catalog struct {
	frameworks []models.Framework
	byKey      map[string]int
	byChoice   map[string]int
}

// Default returns the built-in catalogue
func Default() *Catalog {
	c, _ := New(builtin)
	return c
}

// New builds a catalogue. Keys and choices must be unique and non-empty.
func New(list []models.Framework) (*Catalog, error) {
	c := &Catalog{
		byKey:    make(map[string]int),
		byChoice: make(map[string]int),
	}
	for _, f := range list {
		if err := c.add(f); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(f models.Framework) error {
	if f.Key == "" || f.Choice == "" {
		return fmt.Errorf("framework %q: key and choice are required", f.Name)
	}
	if _, ok := c.byKey[f.Key]; ok {
		return fmt.Errorf("duplicate framework key %q", f.Key)
	}
	if _, ok := c.byChoice[f.Choice]; ok {
		return fmt.Errorf("duplicate framework choice %q", f.Choice)
	}
	c.frameworks = append(c.frameworks, f)
	c.byKey[f.Key] = len(c.frameworks) - 1
	c.byChoice[f.Choice] = len(c.frameworks) - 1
	return nil
}

// All returns the frameworks ordered by menu choice
func (c *Catalog) All() []models.Framework {
	out := make([]models.Framework, len(c.frameworks))
	copy(out, c.frameworks)
	sort.SliceStable(out, func(i, j int) bool {
		return choiceLess(out[i].Choice, out[j].Choice)
	})
	return out
}

// ByChoice looks a framework up by its menu choice ("1", "2", ...)
func (c *Catalog) ByChoice(choice string) (models.Framework, error) {
	i, ok := c.byChoice[choice]
	if !ok {
		return models.Framework{}, fmt.Errorf("%w: choice %q", ErrUnknownFramework, choice)
	}
	return c.frameworks[i], nil
}

// ByKey looks a framework up by its key
func (c *Catalog) ByKey(key string) (models.Framework, error) {
	i, ok := c.byKey[key]
	if !ok {
		return models.Framework{}, fmt.Errorf("%w: key %q", ErrUnknownFramework, key)
	}
	return c.frameworks[i], nil
}

// PromptFor returns the generation prompt for a key.
// Unknown keys get the Selenium prompt.
func (c *Catalog) PromptFor(key string) string {
	if f, err := c.ByKey(key); err == nil && f.Prompt != "" {
		return f.Prompt
	}
	if f, err := c.ByKey(DefaultPromptKey); err == nil {
		return f.Prompt
	}
	return builtin[0].Prompt
}

// catalogFile is the YAML layout accepted by LoadCatalog
type catalogFile struct {
	Frameworks []models.Framework `yaml:"frameworks"`
}

// LoadCatalog reads a YAML file and merges it over the built-in catalogue.
// Entries whose key already exists replace the built-in entry field by field;
// new keys are appended.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog merges YAML catalogue data over the built-in catalogue
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	merged := make([]models.Framework, len(builtin))
	copy(merged, builtin)
	index := make(map[string]int, len(merged))
	for i, f := range merged {
		index[f.Key] = i
	}

	for _, f := range file.Frameworks {
		i, ok := index[f.Key]
		if !ok {
			merged = append(merged, f)
			index[f.Key] = len(merged) - 1
			continue
		}
		merged[i] = overlay(merged[i], f)
	}

	return New(merged)
}

func overlay(base, over models.Framework) models.Framework {
	if over.Choice != "" {
		base.Choice = over.Choice
	}
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.Language != "" {
		base.Language = over.Language
	}
	if over.Extension != "" {
		base.Extension = over.Extension
	}
	if over.Prompt != "" {
		base.Prompt = over.Prompt
	}
	return base
}

// choiceLess orders numeric choices numerically, everything else lexically after them
func choiceLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
