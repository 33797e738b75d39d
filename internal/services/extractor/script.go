package extractor

import (
	"fmt"
	"strings"
)

// stateScript builds the page-state probe. It searches well-known global state
// blobs for the identifier fields, then falls back to inline script text.
// The result is always an object with both keys, empty when not found.
func stateScript(sellerParam, oecParam string) string {
	return fmt.Sprintf(`(() => {
  const keys = { seller: [%[1]q, %[2]q], oec: [%[3]q, %[4]q] };
  const out = { seller_id: "", oec_seller_id: "" };
  const str = (v) => (typeof v === "string" || typeof v === "number") ? String(v) : "";
  const walk = (node, depth) => {
    if (!node || typeof node !== "object" || depth > 6) return;
    for (const k of Object.keys(node)) {
      const v = node[k];
      if (!out.seller_id && keys.seller.includes(k) && str(v)) out.seller_id = str(v);
      if (!out.oec_seller_id && keys.oec.includes(k) && str(v)) out.oec_seller_id = str(v);
      if (out.seller_id && out.oec_seller_id) return;
      if (v && typeof v === "object") walk(v, depth + 1);
    }
  };
  for (const name of ["__INITIAL_STATE__", "__NEXT_DATA__", "__APP_STATE__", "__PRELOADED_STATE__", "SSR_DATA"]) {
    try { walk(window[name], 0); } catch (e) {}
    if (out.seller_id && out.oec_seller_id) return out;
  }
  const find = (names, text) => {
    for (const n of names) {
      const m = text.match(new RegExp('"' + n + '"\\s*:\\s*"?(\\d+)'));
      if (m) return m[1];
    }
    return "";
  };
  for (const s of document.querySelectorAll("script:not([src])")) {
    const text = s.textContent || "";
    if (!out.seller_id) out.seller_id = find(keys.seller, text);
    if (!out.oec_seller_id) out.oec_seller_id = find(keys.oec, text);
    if (out.seller_id && out.oec_seller_id) break;
  }
  return out;
})()`, sellerParam, camelCase(sellerParam), oecParam, camelCase(oecParam))
}

// camelCase turns snake_case into camelCase: oec_seller_id -> oecSellerId
func camelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
