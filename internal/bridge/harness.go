package bridge

import (
	"strconv"
	"strings"

	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
)

// ResponseEvent is the topic the harness emits on
const ResponseEvent = "script-response"

// Diagnostic prefixes logged by the harness when the page has no event API
const (
	NoEventAPIResponse = "BRIDGE_SCRIPT_RESPONSE (no event API)"
	NoEventAPIError    = "BRIDGE_SCRIPT_ERROR (no event API)"
)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"${", `\${`,
	"\r", `\r`,
)

// EscapeLiteral makes script safe to place inside a JavaScript template
// literal. The literal's value equals script exactly.
func EscapeLiteral(script string) string {
	return literalEscaper.Replace(script)
}

// Wrap embeds userScript in the evaluation harness for cid. The harness
// evaluates the script as an expression, JSON-serializes the value and emits
// a script-response event of the form
//
//	{id, status: "ok", value: <json text>}
//	{id, status: "error", error: <message>}
//
// falling back to console.log when window.__TAURI__.event.emit is missing.
func Wrap(cid id.CorrelationID, userScript string) string {
	var b strings.Builder
	b.Grow(len(userScript) + len(harnessHead) + len(harnessTail) + 64)

	b.WriteString("(function () {\n  const __id = ")
	b.WriteString(strconv.Quote(cid.String()))
	b.WriteString(";\n")
	b.WriteString(harnessHead)
	b.WriteString("    const __src = `")
	b.WriteString(EscapeLiteral(userScript))
	b.WriteString("`;\n")
	b.WriteString("    const __value = (0, eval)(\"(\" + __src + \"\\n)\");\n")
	b.WriteString(harnessTail)
	return b.String()
}

// WrapTrusted is Wrap for an expression the caller controls. The expression
// is inlined as code rather than passed to eval, so it also runs on pages
// whose Content-Security-Policy forbids 'unsafe-eval'. It must be a complete
// expression: a syntax error fails the whole harness and nothing is emitted.
func WrapTrusted(cid id.CorrelationID, expression string) string {
	var b strings.Builder
	b.Grow(len(expression) + len(harnessHead) + len(harnessTail) + 64)

	b.WriteString("(function () {\n  const __id = ")
	b.WriteString(strconv.Quote(cid.String()))
	b.WriteString(";\n")
	b.WriteString(harnessHead)
	b.WriteString("    const __value = (\n")
	b.WriteString(expression)
	b.WriteString("\n    );\n")
	b.WriteString(harnessTail)
	return b.String()
}

const harnessHead = `  const __emit = (payload) => {
    const api = window.__TAURI__ && window.__TAURI__.event;
    if (api && typeof api.emit === "function") {
      api.emit("` + ResponseEvent + `", payload);
      return true;
    }
    return false;
  };
  try {
`

const harnessTail = `    let __json;
    try {
      __json = JSON.stringify(__value);
    } catch (_) {
      __json = JSON.stringify(String(__value ?? ""));
    }
    if (!__emit({ id: __id, status: "ok", value: __json })) {
      console.log("` + NoEventAPIResponse + `", __id, __json);
    }
  } catch (e) {
    const msg = e && e.toString ? e.toString() : "Unknown error";
    if (!__emit({ id: __id, status: "error", error: msg })) {
      console.log("` + NoEventAPIError + `", __id, msg);
    }
  }
})();`
