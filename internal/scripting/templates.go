// File: internal/scripting/templates.go
package scripting

import (
	"fmt"
	"hash/fnv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// templateKey identifies one assembled script in the template cache. The hash
// covers the page-script body; tab and window are part of the key because they
// are baked into the assembled JXA source.
type templateKey struct {
	Hash   uint64
	Tab    int
	Window int
}

// hashScript returns the FNV-1a hash of a script body.
func hashScript(script string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(script))
	return h.Sum64()
}

// quoteJS renders s as a JavaScript string literal. JSON string syntax is a
// subset of JS, so marshaling is sufficient and handles every escape.
func quoteJS(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshaling a string cannot fail; keep the fallback cheap anyway.
		return `""`
	}
	return string(b)
}

// assemble wraps a page script into a complete JXA program that targets the
// given Chrome tab and window and evaluates the script there. Assembly is a
// pure function of its inputs, which is what makes the template cache
// transparent: a hit skips this work, never a process spawn.
//
// The assembled program's stdout protocol: success prints the JSON-encoded
// evaluation result, failure prints "ERROR: <message>".
func assemble(pageScript string, tabIndex, windowIndex int) string {
	return fmt.Sprintf(`(function() {
	try {
		var chrome = Application('Google Chrome');
		if (!chrome.running()) {
			return 'ERROR: application is not running';
		}
		if (chrome.windows.length <= %d) {
			return 'ERROR: window index %d out of range';
		}
		var win = chrome.windows[%d];
		if (win.tabs.length <= %d) {
			return 'ERROR: tab index %d out of range';
		}
		var tab = win.tabs[%d];
		var result = tab.execute({javascript: %s});
		return JSON.stringify(result === undefined ? null : result);
	} catch (e) {
		return 'ERROR: ' + e.message;
	}
})()`,
		windowIndex, windowIndex,
		windowIndex,
		tabIndex, tabIndex,
		tabIndex,
		quoteJS(pageScript),
	)
}

// assembleWindowScript wraps a JXA fragment that works against the Chrome
// application object itself (window bounds, window count, focus) rather than
// evaluating JavaScript inside a page. The fragment sees the variable
// `chrome` and must return a string.
func assembleWindowScript(fragment string) string {
	return fmt.Sprintf(`(function() {
	try {
		var chrome = Application('Google Chrome');
		if (!chrome.running()) {
			return 'ERROR: application is not running';
		}
		%s
	} catch (e) {
		return 'ERROR: ' + e.message;
	}
})()`, fragment)
}

// windowBoundsFragment returns the JXA fragment reporting a window's screen
// rectangle as JSON {x, y, width, height}.
func windowBoundsFragment(windowIndex int) string {
	return fmt.Sprintf(`if (chrome.windows.length <= %d) {
			return 'ERROR: window index %d out of range';
		}
		var b = chrome.windows[%d].bounds();
		return JSON.stringify({x: b.x, y: b.y, width: b.width, height: b.height});`,
		windowIndex, windowIndex, windowIndex)
}

// windowListFragment returns the JXA fragment enumerating all windows with
// their index, title and bounds.
func windowListFragment() string {
	return `var out = [];
		for (var i = 0; i < chrome.windows.length; i++) {
			var w = chrome.windows[i];
			var b = w.bounds();
			out.push({index: i, title: w.name(), x: b.x, y: b.y, width: b.width, height: b.height});
		}
		return JSON.stringify(out);`
}

// focusWindowFragment returns the JXA fragment that raises a window and
// brings Chrome to the foreground, which input injection requires.
func focusWindowFragment(windowIndex int) string {
	return fmt.Sprintf(`if (chrome.windows.length <= %d) {
			return 'ERROR: window index %d out of range';
		}
		chrome.windows[%d].index = 1;
		chrome.activate();
		return JSON.stringify(true);`,
		windowIndex, windowIndex, windowIndex)
}
