package signup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodDriver executes flow steps with Go Rod
type rodDriver struct {
	page *rod.Page
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: waiting for load of %s: %w", ErrNavigation, url, err)
	}
	return nil
}

func (d *rodDriver) Fill(ctx context.Context, selector, value string) error {
	elem, err := d.element(ctx, selector)
	if err != nil {
		return err
	}
	// Replace any prefilled value
	if err := elem.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", selector, err)
	}
	if err := elem.Input(value); err != nil {
		return fmt.Errorf("input into %s: %w", selector, err)
	}
	return nil
}

func (d *rodDriver) SubmitAndWaitNavigation(ctx context.Context, selector string) error {
	elem, err := d.element(ctx, selector)
	if err != nil {
		return err
	}

	p := d.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)

	if err := elem.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click %s: %w", ErrSubmit, selector, err)
	}

	wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	return nil
}

func (d *rodDriver) WaitText(ctx context.Context, selector string) (string, error) {
	elem, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSuccessMissing, selector, err)
	}
	return elementText(selector, elem.Text), nil
}

// elementText reads the text of a found success element. Presence is the
// assertion, so a failed read is logged and reported as empty text.
func elementText(selector string, read func() (string, error)) string {
	text, err := read()
	if err != nil {
		slog.Warn("Could not read success text", "selector", selector, "error", err)
		return ""
	}
	return text
}

func (d *rodDriver) element(ctx context.Context, selector string) (*rod.Element, error) {
	elem, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
	}
	if err := elem.WaitVisible(); err != nil {
		return nil, fmt.Errorf("%w: %s not visible: %w", ErrElementNotFound, selector, err)
	}
	return elem, nil
}
