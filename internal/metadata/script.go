package metadata

// IconSelector matches the link elements the in-page script reads icons from
const IconSelector = "link[rel~='icon'], link[rel='shortcut icon'], link[rel='apple-touch-icon'], link[rel='mask-icon'], link[rel='fluid-icon']"

// ExtractionScript evaluates to a metadata record for the current document.
// It sticks to syntax every supported surface engine parses.
const ExtractionScript = `(function () {
  var $ = function (s) { return document.querySelector(s); };
  var meta = function (s) {
    var el = $(s);
    return (el && el.content) || "";
  };
  var abs = function (href) {
    try {
      return href ? new URL(href, document.baseURI).href : "";
    } catch (e) {
      return href || "";
    }
  };

  var icons = Array.from(document.querySelectorAll("` + IconSelector + `"))
    .map(function (n) { return abs(n.getAttribute("href")); })
    .filter(Boolean);

  var h1 = $("h1");
  var title =
    document.title ||
    meta("meta[property='og:title']") ||
    meta("meta[name='twitter:title']") ||
    (h1 && h1.textContent ? h1.textContent.trim() : "");

  var description =
    meta("meta[name='description']") ||
    meta("meta[property='og:description']") ||
    meta("meta[name='twitter:description']");

  var canonical = $("link[rel='canonical']");

  return {
    url: location.href,
    canonical: (canonical && canonical.href) || "",
    title: title,
    description: description,
    icon: icons[0] || "",
    icons: icons,
    theme_color: meta("meta[name='theme-color']"),
    lang: document.documentElement.getAttribute("lang") || ""
  };
})()`
