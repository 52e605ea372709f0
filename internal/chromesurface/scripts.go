package chromesurface

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// popupPolicyScript runs before any page script. Requests to open a new
// window load in the current document instead.
const popupPolicyScript = `(function () {
  if (window.__tabshellPopupPolicy) { return; }
  Object.defineProperty(window, "__tabshellPopupPolicy", { value: true });
  var load = function (url) {
    if (url === undefined || url === null || String(url) === "") { return; }
    try {
      window.location.assign(new URL(String(url), document.baseURI).href);
    } catch (e) {}
  };
  window.open = function (url) { load(url); return null; };
  var retarget = function (el) {
    var t = (el.getAttribute("target") || "").toLowerCase();
    if (t !== "" && t !== "_self" && t !== "_top" && t !== "_parent") {
      el.setAttribute("target", "_self");
    }
  };
  document.addEventListener("click", function (ev) {
    var el = ev.target && ev.target.closest ? ev.target.closest("a[target],area[target]") : null;
    if (el) { retarget(el); }
  }, true);
  document.addEventListener("submit", function (ev) {
    if (ev.target && ev.target.getAttribute) { retarget(ev.target); }
  }, true);
})();`

func installPopupPolicy() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return err
		}
		_, err := page.AddScriptToEvaluateOnNewDocument(popupPolicyScript).Do(ctx)
		return err
	})
}
