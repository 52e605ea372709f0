package core

import (
	"context"
	"encoding/json"

	"pkt.systems/tabshell/internal/logx"
	"pkt.systems/tabshell/schema"
)

// pasteFunction runs inside the page. It handles exactly two kinds of focused
// element: text inputs and textareas get the text spliced over the current
// selection followed by input and change events, and contenteditable regions
// get it through the browser's insertText command. Anything else yields false.
const pasteFunction = `(function (text) {
  try {
    var el = document.activeElement;
    while (el && el.shadowRoot && el.shadowRoot.activeElement) {
      el = el.shadowRoot.activeElement;
    }
    if (!el || el === document.body) {
      return false;
    }
    var tag = (el.tagName || "").toLowerCase();
    var textTypes = ["", "text", "search", "url", "tel", "email", "password", "number"];
    var isField = tag === "textarea" ||
      (tag === "input" && textTypes.indexOf((el.getAttribute("type") || "").toLowerCase()) !== -1);
    if (isField) {
      if (el.disabled || el.readOnly) {
        return false;
      }
      var value = el.value || "";
      var start = typeof el.selectionStart === "number" ? el.selectionStart : value.length;
      var end = typeof el.selectionEnd === "number" ? el.selectionEnd : value.length;
      var next = value.slice(0, start) + text + value.slice(end);
      var proto = tag === "textarea" ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
      var desc = Object.getOwnPropertyDescriptor(proto, "value");
      if (desc && desc.set) {
        desc.set.call(el, next);
      } else {
        el.value = next;
      }
      var caret = start + text.length;
      try { el.setSelectionRange(caret, caret); } catch (e) {}
      el.dispatchEvent(new Event("input", { bubbles: true }));
      el.dispatchEvent(new Event("change", { bubbles: true }));
      return true;
    }
    if (el.isContentEditable) {
      el.focus();
      return document.execCommand("insertText", false, text) === true;
    }
    return false;
  } catch (e) {
    return false;
  }
})`

// pasteScript binds text into the in-page paste function call.
func pasteScript(text string) (string, error) {
	arg, err := json.Marshal(text)
	if err != nil {
		return "", err
	}
	return pasteFunction + "(" + string(arg) + ")", nil
}

func (s *service) Paste(ctx context.Context, req schema.PasteRequest) (schema.PasteResponse, error) {
	s.mu.Lock()
	t := s.activeLocked()
	s.mu.Unlock()
	if t == nil {
		logx.Ctx(ctx).Debug("shell paste ignored", "reason", "no active tab")
		return schema.PasteResponse{}, nil
	}
	log := logx.WithTab(ctx, t.ID)
	script, err := pasteScript(req.Text)
	if err != nil {
		log.Warn("shell paste failed", "err", err)
		return schema.PasteResponse{}, nil
	}
	var inserted bool
	if err := t.surface.Evaluate(logx.ContextWithTabLogger(ctx, log, t.ID), script, &inserted); err != nil {
		log.Warn("shell paste failed", "err", err)
		return schema.PasteResponse{}, nil
	}
	log.Debug("shell paste", "inserted", inserted, "chars", len([]rune(req.Text)))
	return schema.PasteResponse{Inserted: inserted}, nil
}
