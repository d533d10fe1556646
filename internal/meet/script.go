package meet

import (
	"encoding/json"
	"fmt"
)

// Element IDs of the widgets automeet injects into the page.
const (
	CountdownElementID = "automeet-countdown"
	OverlayElementID   = "automeet-overlay"
	ConflictElementID  = "automeet-conflict"
)

// jsString returns s as a JavaScript string literal.
func jsString(s string) string {
	raw, err := json.Marshal(s)
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return string(raw)
}

func joinTextsJS() string {
	raw, err := json.Marshal(joinTexts)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// findJoinJS is a JS statement sequence that leaves the current join control
// in a "join" variable, or null. Controls are re-resolved on every run; the
// host page re-renders too often for element references to stay valid.
func findJoinJS() string {
	return fmt.Sprintf(`
	const texts = %s;
	let join = null;
	for (const el of document.querySelectorAll('button, [role="button"]')) {
		const text = (el.textContent || '').trim().toLowerCase();
		if (texts.includes(text)) { join = el; break; }
	}`, joinTextsJS())
}

// ClickJoinScript clicks the join control once. Evaluates to true when a
// control was found and clicked.
func ClickJoinScript() string {
	return fmt.Sprintf(`(() => {%s
	if (!join) return false;
	join.click();
	return true;
})()`, findJoinJS())
}

// ClickByLabelScript clicks the control carrying the given ARIA label.
// Evaluates to true when a control was found and clicked.
func ClickByLabelScript(label string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector('[aria-label=' + JSON.stringify(%s) + ']');
	if (!el) return false;
	el.click();
	return true;
})()`, jsString(label))
}

// DisplayModeStandaloneScript evaluates to true inside an installed app
// window and false in an ordinary tab.
func DisplayModeStandaloneScript() string {
	return `window.matchMedia('(display-mode: standalone)').matches`
}

// ShowCountdownScript renders the countdown widget next to the current join
// control, reinserting it if the host page's re-rendering detached it, and
// updates the remaining-seconds text. Evaluates to false when no join control
// exists anymore, which aborts the countdown.
func ShowCountdownScript(remaining int64) string {
	return fmt.Sprintf(`(() => {%s
	if (!join) return false;
	let box = document.getElementById(%s);
	if (!box || !box.isConnected) {
		if (box) box.remove();
		box = document.createElement('div');
		box.id = %s;
		box.style.cssText = 'margin:8px;padding:8px 12px;background:#1a73e8;color:#fff;' +
			'border-radius:8px;display:inline-flex;align-items:center;gap:12px;';
		const text = document.createElement('span');
		text.id = %s + '-text';
		box.appendChild(text);
		const cancel = document.createElement('button');
		cancel.textContent = 'Cancel';
		cancel.style.cssText = 'background:#fff;color:#1a73e8;border:none;border-radius:4px;' +
			'padding:4px 10px;cursor:pointer;';
		cancel.addEventListener('click', () => {
			window.__automeetCancel = true;
			box.remove();
		});
		box.appendChild(cancel);
		join.parentElement.insertBefore(box, join.nextSibling);
	}
	document.getElementById(%s + '-text').textContent = 'Auto-joining in ' + %d + 's';
	return true;
})()`, findJoinJS(),
		jsString(CountdownElementID), jsString(CountdownElementID), jsString(CountdownElementID),
		jsString(CountdownElementID), remaining)
}

// CancelRequestedScript evaluates to true once the user clicked the
// countdown's cancel button.
func CancelRequestedScript() string {
	return `window.__automeetCancel === true`
}

// RemoveCountdownScript tears down the countdown widget and clears the
// cancel flag. Safe to run when nothing is present.
func RemoveCountdownScript() string {
	return fmt.Sprintf(`(() => {
	const box = document.getElementById(%s);
	if (box) box.remove();
	window.__automeetCancel = false;
	return true;
})()`, jsString(CountdownElementID))
}

// ShowOverlayScript covers the page with a notice that the meeting moved to
// the app window. Its dismiss button only removes the overlay; it never
// undoes the redirect.
func ShowOverlayScript() string {
	return fmt.Sprintf(`(() => {
	if (document.getElementById(%s)) return true;
	const overlay = document.createElement('div');
	overlay.id = %s;
	overlay.style.cssText = 'position:fixed;inset:0;z-index:2147483647;' +
		'background:rgba(32,33,36,0.96);color:#fff;display:flex;flex-direction:column;' +
		'align-items:center;justify-content:center;gap:16px;font-family:sans-serif;';
	const msg = document.createElement('div');
	msg.textContent = 'This meeting was moved to the Meet app window.';
	msg.style.cssText = 'font-size:20px;';
	overlay.appendChild(msg);
	const btn = document.createElement('button');
	btn.textContent = 'Use this tab instead';
	btn.style.cssText = 'background:#1a73e8;color:#fff;border:none;border-radius:4px;' +
		'padding:8px 16px;font-size:14px;cursor:pointer;';
	btn.addEventListener('click', () => overlay.remove());
	overlay.appendChild(btn);
	document.body.appendChild(overlay);
	return true;
})()`, jsString(OverlayElementID), jsString(OverlayElementID))
}

// RemoveOverlayScript removes the redirect overlay if present.
func RemoveOverlayScript() string {
	return fmt.Sprintf(`(() => {
	const overlay = document.getElementById(%s);
	if (!overlay) return false;
	overlay.remove();
	return true;
})()`, jsString(OverlayElementID))
}

// ShowConflictPromptScript renders the switch/dismiss prompt shown when a
// pending meeting arrives while the app window is on a different call. The
// buttons record the choice on the window object and remove the prompt.
func ShowConflictPromptScript(code string) string {
	return fmt.Sprintf(`(() => {
	if (document.getElementById(%s)) return true;
	window.__automeetConflictChoice = '';
	const box = document.createElement('div');
	box.id = %s;
	box.style.cssText = 'position:fixed;top:16px;left:50%%;transform:translateX(-50%%);' +
		'z-index:2147483647;background:#fff;color:#202124;border-radius:8px;padding:16px;' +
		'box-shadow:0 2px 12px rgba(0,0,0,0.4);display:flex;align-items:center;gap:12px;' +
		'font-family:sans-serif;';
	const msg = document.createElement('span');
	msg.textContent = 'Leave this call and switch to ' + %s + '?';
	box.appendChild(msg);
	const addButton = (label, choice, primary) => {
		const btn = document.createElement('button');
		btn.textContent = label;
		btn.style.cssText = primary
			? 'background:#1a73e8;color:#fff;border:none;border-radius:4px;padding:6px 12px;cursor:pointer;'
			: 'background:none;color:#1a73e8;border:none;padding:6px 12px;cursor:pointer;';
		btn.addEventListener('click', () => {
			window.__automeetConflictChoice = choice;
			box.remove();
		});
		box.appendChild(btn);
	};
	addButton('Switch', 'switch', true);
	addButton('Stay here', 'dismiss', false);
	document.body.appendChild(box);
	return true;
})()`, jsString(ConflictElementID), jsString(ConflictElementID), jsString(code))
}

// ConflictChoiceScript evaluates to "switch", "dismiss" or "" while the user
// has not decided yet.
func ConflictChoiceScript() string {
	return `window.__automeetConflictChoice || ''`
}

// RemoveConflictPromptScript tears down the conflict prompt and clears any
// recorded choice.
func RemoveConflictPromptScript() string {
	return fmt.Sprintf(`(() => {
	const box = document.getElementById(%s);
	if (box) box.remove();
	window.__automeetConflictChoice = '';
	return true;
})()`, jsString(ConflictElementID))
}
