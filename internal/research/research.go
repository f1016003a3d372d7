// Package research implements the optional Stack Overflow enrichment: fetch
// the top matching question and its best answers through a headless browser
// and hand the text to the prompt as extra context.
package research

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	maxLinks   = 5
	maxContent = 6000 // chars handed back to the prompt
	pageWait   = 10 * time.Second
)

// stealthJS patches common headless browser detection vectors.
const stealthJS = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1,2,3,4,5]});
window.chrome = {runtime: {}};
`

type Browser struct {
	browser *rod.Browser
}

func NewBrowser() (*Browser, error) {
	l := launcher.New().
		Headless(false).
		HeadlessNew(true).
		Set("disable-blink-features", "AutomationControlled")
	if os.Getuid() == 0 {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &Browser{browser: b}, nil
}

func (b *Browser) Close() {
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
}

func (b *Browser) newPage(ctx context.Context) (*rod.Page, error) {
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	p.EvalOnNewDocument(stealthJS)
	return p, nil
}

// StackAnswers searches for the question and returns the first Stack
// Overflow thread's question plus top answers as plain text. An empty string
// means nothing usable was found; callers degrade to the plain prompt.
func (b *Browser) StackAnswers(ctx context.Context, question string) (string, error) {
	links, err := b.searchLinks(ctx, question+" site:stackoverflow.com")
	if err != nil {
		return "", err
	}
	for _, link := range links {
		content, err := b.extractThread(ctx, link)
		if err != nil {
			continue
		}
		if len(content) > 5 {
			return content, nil
		}
	}
	return "", nil
}

func (b *Browser) searchLinks(ctx context.Context, query string) ([]string, error) {
	page, err := b.newPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	if err := page.Timeout(pageWait).Navigate(searchURL); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if err := page.Timeout(pageWait).WaitLoad(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	res, err := page.Eval(`() =>
		Array.from(document.querySelectorAll('a.result__a'))
			.map(a => a.href)
			.filter(h => h.includes('stackoverflow.com/questions/'))
	`)
	if err != nil {
		return nil, err
	}
	var links []string
	for _, v := range res.Value.Arr() {
		links = append(links, v.Str())
		if len(links) >= maxLinks {
			break
		}
	}
	return links, nil
}

func (b *Browser) extractThread(ctx context.Context, link string) (string, error) {
	page, err := b.newPage(ctx)
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := page.Timeout(pageWait).Navigate(link); err != nil {
		return "", err
	}
	if err := page.Timeout(pageWait).WaitLoad(); err != nil {
		return "", err
	}

	// Question body plus up to three answer bodies.
	res, err := page.Eval(`() => {
		const prose = el => el ? el.innerText.trim() : '';
		const q = document.querySelector('.question .s-prose');
		if (!q) return '';
		const parts = ['### Question\n' + prose(q)];
		document.querySelectorAll('.answer .s-prose').forEach((a, i) => {
			if (i < 3) parts.push('**Answer ' + (i+1) + '**\n' + prose(a));
		});
		return parts.join('\n\n');
	}`)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(res.Value.Str())
	if len(content) > maxContent {
		content = content[:maxContent] + "\n...(truncated)"
	}
	return content, nil
}
