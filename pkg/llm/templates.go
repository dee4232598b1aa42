package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/signup"
)

// ErrNoTemplate is returned when no sign-up template exists for a framework
var ErrNoTemplate = errors.New("no sign-up template for framework")

// TemplateProvider is the provider name recorded for template output
const TemplateProvider = "template"

// Python and JavaScript templates quote with JSON string syntax, which both
// languages accept. Go templates quote with Go syntax.
var (
	scriptFuncs = template.FuncMap{"q": quoteScript}
	goFuncs     = template.FuncMap{"q": strconv.Quote}
)

func quoteScript(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var signupTemplates = map[string]*template.Template{
	frameworks.KeySelenium: template.Must(template.New(frameworks.KeySelenium).Funcs(scriptFuncs).Parse(`import pytest
from selenium import webdriver
from selenium.webdriver.common.by import By
from selenium.webdriver.support import expected_conditions as EC
from selenium.webdriver.support.ui import WebDriverWait


class SignupPage:
    URL = {{q .URL}}

    def __init__(self, driver):
        self.driver = driver
        self.wait = WebDriverWait(driver, {{.TimeoutSeconds}})

    def open(self):
        self.driver.get(self.URL)

    def fill(self, selector, value):
        field = self.wait.until(EC.visibility_of_element_located((By.CSS_SELECTOR, selector)))
        field.clear()
        field.send_keys(value)

    def submit(self):
        old = self.driver.find_element(By.TAG_NAME, "html")
        self.driver.find_element(By.CSS_SELECTOR, {{q .Selectors.Submit}}).click()
        self.wait.until(EC.staleness_of(old))

    def success_message(self):
        return self.wait.until(EC.presence_of_element_located((By.CSS_SELECTOR, {{q .Selectors.Success}})))


@pytest.fixture
def driver():
    drv = webdriver.Chrome()
    yield drv
    drv.quit()


def test_successful_sign_up(driver):
    page = SignupPage(driver)
    page.open()
    page.fill({{q .Selectors.Username}}, {{q .Credentials.Username}})
    page.fill({{q .Selectors.Email}}, {{q .Credentials.Email}})
    page.fill({{q .Selectors.Password}}, {{q .Credentials.Password}})
    page.submit()
    assert page.success_message() is not None
`)),

	frameworks.KeyCypress: template.Must(template.New(frameworks.KeyCypress).Funcs(scriptFuncs).Parse(`describe('Sign Up', () => {
  it('signs up successfully', () => {
    cy.visit({{q .URL}});

    cy.get({{q .Selectors.Username}}).clear().type({{q .Credentials.Username}});
    cy.get({{q .Selectors.Email}}).clear().type({{q .Credentials.Email}});
    cy.get({{q .Selectors.Password}}).clear().type({{q .Credentials.Password}});

    cy.get({{q .Selectors.Submit}}).click();

    cy.get({{q .Selectors.Success}}, { timeout: {{.TimeoutMillis}} }).should('exist');
  });
});
`)),

	frameworks.KeyPlaywrightPy: template.Must(template.New(frameworks.KeyPlaywrightPy).Funcs(scriptFuncs).Parse(`from playwright.sync_api import Page, expect


def test_successful_sign_up(page: Page):
    page.set_default_timeout({{.TimeoutMillis}})
    page.goto({{q .URL}})

    page.fill({{q .Selectors.Username}}, {{q .Credentials.Username}})
    page.fill({{q .Selectors.Email}}, {{q .Credentials.Email}})
    page.fill({{q .Selectors.Password}}, {{q .Credentials.Password}})

    with page.expect_navigation():
        page.click({{q .Selectors.Submit}})

    expect(page.locator({{q .Selectors.Success}})).to_be_visible()
`)),

	frameworks.KeyPlaywrightJS: template.Must(template.New(frameworks.KeyPlaywrightJS).Funcs(scriptFuncs).Parse(`const { test, expect } = require('@playwright/test');

test('Successful Sign Up Test', async ({ page }) => {
  page.setDefaultTimeout({{.TimeoutMillis}});

  // Navigate to the sign-up page
  await page.goto({{q .URL}});

  // Fill in the sign-up form
  await page.fill({{q .Selectors.Username}}, {{q .Credentials.Username}});
  await page.fill({{q .Selectors.Email}}, {{q .Credentials.Email}});
  await page.fill({{q .Selectors.Password}}, {{q .Credentials.Password}});

  // Submit the form and wait for the navigation it triggers
  await Promise.all([
    page.waitForNavigation(),
    page.click({{q .Selectors.Submit}}),
  ]);

  const successMessage = await page.waitForSelector({{q .Selectors.Success}});
  expect(successMessage).not.toBeNull();
});
`)),

	frameworks.KeyRequests: template.Must(template.New(frameworks.KeyRequests).Funcs(scriptFuncs).Parse(`import requests

SIGNUP_URL = {{q .URL}}


def test_successful_sign_up():
    payload = {
        "username": {{q .Credentials.Username}},
        "email": {{q .Credentials.Email}},
        "password": {{q .Credentials.Password}},
    }
    response = requests.post(SIGNUP_URL, data=payload, timeout={{.TimeoutSeconds}})

    assert response.status_code in (200, 201, 302)
    assert "success" in response.text.lower()
`)),

	frameworks.KeyGoRod: template.Must(template.New(frameworks.KeyGoRod).Funcs(goFuncs).Parse(`package main_test

import (
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

func TestSuccessfulSignUp(t *testing.T) {
	browser := rod.New().MustConnect()
	defer browser.MustClose()

	page := browser.MustPage({{q .URL}}).Timeout({{.TimeoutSeconds}} * time.Second)
	page.MustWaitLoad()

	page.MustElement({{q .Selectors.Username}}).MustWaitVisible().MustSelectAllText().MustInput({{q .Credentials.Username}})
	page.MustElement({{q .Selectors.Email}}).MustWaitVisible().MustSelectAllText().MustInput({{q .Credentials.Email}})
	page.MustElement({{q .Selectors.Password}}).MustWaitVisible().MustSelectAllText().MustInput({{q .Credentials.Password}})

	// Arm the navigation wait before clicking submit
	wait := page.WaitNavigation(proto.PageLifecycleEventNameLoad)
	page.MustElement({{q .Selectors.Submit}}).MustClick()
	wait()

	if _, err := page.Element({{q .Selectors.Success}}); err != nil {
		t.Fatalf("success message not found: %v", err)
	}
}
`)),
}

type templateData struct {
	signup.Flow
	TimeoutSeconds int
	TimeoutMillis  int64
}

// HasSignupTemplate reports whether a template exists for the framework key
func HasSignupTemplate(frameworkKey string) bool {
	_, ok := signupTemplates[frameworkKey]
	return ok
}

// RenderSignupTemplate renders a deterministic sign-up test for the framework
func RenderSignupTemplate(framework models.Framework, flow signup.Flow) (string, error) {
	tmpl, ok := signupTemplates[framework.Key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoTemplate, framework.Key)
	}
	if err := flow.Validate(); err != nil {
		return "", err
	}

	timeout := flow.Timeout
	if timeout <= 0 {
		timeout = signup.DefaultTimeout
	}
	data := templateData{
		Flow:           flow,
		TimeoutSeconds: int(timeout.Seconds()),
		TimeoutMillis:  timeout.Milliseconds(),
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", framework.Key, err)
	}
	return sb.String(), nil
}
