package main

import "strings"

// locatorStrategy is one candidate rule for finding a page element. Each
// semantic target carries an ordered list of strategies because WhatsApp Web
// changes its markup without notice; the first one that resolves wins.
type locatorStrategy struct {
	Name     string
	Selector string
}

// isXPath reports whether a selector string should be probed as XPath
// rather than CSS.
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(")
}

// Authenticated-session indicators: any of these visible means we are past
// the QR challenge.
var loggedInStrategies = []locatorStrategy{
	{"chat pane", `//div[@id='pane-side']`},
	{"side panel", `//div[@id='side']`},
	{"new chat button", `//div[@title='New chat']`},
}

var qrCodeStrategies = []locatorStrategy{
	{"qr canvas", `//canvas[@aria-label='Scan me!']`},
	{"qr canvas generic", `//div[@data-ref]//canvas`},
}

var invalidNumberStrategies = []locatorStrategy{
	{"invalid banner", `//*[contains(text(), 'phone number is invalid')]`},
	{"invalid banner es", `//*[contains(text(), 'El número de teléfono')]`},
	{"invalid dialog", `//div[contains(text(), 'Phone number shared via url is invalid')]`},
}

var attachButtonStrategies = []locatorStrategy{
	{"attach title", `//div[@title='Attach']`},
	{"attach aria button", `//button[@aria-label='Attach']`},
	{"attach aria div", `//div[@role='button'][contains(@aria-label, 'Attach')]`},
	{"attach aria es", `//div[@role='button'][contains(@aria-label, 'Adjuntar')]`},
	{"plus icon", `//span[@data-icon='plus']/..`},
	{"attach-menu icon", `//span[@data-icon='attach-menu-plus']/..`},
	{"clip icon", `//span[@data-icon='clip']/..`},
}

// The image input is a distinct menu entry from the document input, so the
// two attachment kinds go through different strategy lists and are never
// combined into one chooser invocation.
var imageInputStrategies = []locatorStrategy{
	{"image file input", `input[type="file"][accept*="image"]`},
	{"video file input", `input[type="file"][accept*="video"]`},
	{"any file input", `input[type="file"]`},
}

var documentInputStrategies = []locatorStrategy{
	{"wildcard file input", `input[type="file"][accept="*"]`},
	{"any file input", `input[type="file"]`},
}

var sendButtonStrategies = []locatorStrategy{
	{"send icon", `//span[@data-icon='send']/..`},
	{"send aria button", `//button[@aria-label='Send']`},
	{"send aria es", `//div[@role='button'][@aria-label='Enviar']`},
	{"send icon wrapped", `//span[@data-icon='send']/ancestor::button`},
	{"send title", `//div[@title='Send' or @title='Enviar']`},
}

// elementTraits describes one editable element as observed in the page,
// enough for the compose-box filter to run outside the browser.
type elementTraits struct {
	DataTab   string `json:"dataTab"`
	Lexical   bool   `json:"lexical"`
	AriaLabel string `json:"ariaLabel"`
	Title     string `json:"title"`
	InFooter  bool   `json:"inFooter"`
	InSearch  bool   `json:"inSearch"`
	Visible   bool   `json:"visible"`
}

// composeStrategy matches compose-box candidates in priority order.
type composeStrategy struct {
	Name    string
	Matches func(elementTraits) bool
}

var composeStrategies = []composeStrategy{
	{"message slot", func(t elementTraits) bool {
		return t.DataTab == "10"
	}},
	{"lexical editor in footer", func(t elementTraits) bool {
		return t.Lexical && t.InFooter
	}},
	{"type-a-message label", func(t elementTraits) bool {
		return strings.Contains(t.AriaLabel, "Type a message") || t.Title == "Type a message"
	}},
	{"footer editable", func(t elementTraits) bool {
		return t.InFooter
	}},
}

// chooseComposeBox picks the message-composition element among the editable
// candidates on the page. The chat search box shares the contenteditable
// trait, so a naive "any editable div" pick grabs the wrong element; the
// filter excludes the search slot (data-tab='3') and anything rooted in a
// search region, and requires visibility, before the priority-ordered
// strategies run.
func chooseComposeBox(candidates []elementTraits) (int, string, bool) {
	for _, strategy := range composeStrategies {
		for i, t := range candidates {
			if !t.Visible {
				continue
			}
			if t.DataTab == "3" {
				continue
			}
			if t.InSearch && !t.InFooter {
				continue
			}
			if strategy.Matches(t) {
				return i, strategy.Name, true
			}
		}
	}
	return -1, "", false
}

// composeProbeJS tags every editable candidate with a data-wam-idx attribute
// and returns its traits, so Go can filter and then address the winner with
// a plain CSS selector.
const composeProbeJS = `(() => {
	const nodes = Array.from(document.querySelectorAll("div[contenteditable='true'], div[role='textbox']"));
	return nodes.map((el, i) => {
		el.setAttribute('data-wam-idx', String(i));
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return {
			dataTab: el.getAttribute('data-tab') || '',
			lexical: el.getAttribute('data-lexical-editor') !== null,
			ariaLabel: el.getAttribute('aria-label') || '',
			title: el.getAttribute('title') || '',
			inFooter: el.closest('footer') !== null,
			inSearch: el.closest("[data-testid*='search'], [aria-label*='Search'], [aria-label*='Buscar']") !== null,
			visible: rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none',
		};
	});
})()`
