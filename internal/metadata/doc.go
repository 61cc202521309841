/*
Package metadata resolves page metadata for a browsing surface.

Two paths produce the same record shape:

  - In-page: an extraction script runs inside the surface through the
    correlated evaluator and its JSON result is returned verbatim.
  - HTTP fallback: the page URL is fetched and the HTML parsed with goquery
    and htmlquery.

The fallback only runs when in-page extraction fails and a URL is known.
Once a URL is known resolution never fails: a fetch or parse error yields a
record carrying only the URL.
*/
package metadata
