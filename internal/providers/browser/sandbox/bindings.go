package sandbox

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
)

// bindDocument exposes the current DOM as document and location
func (w *Window) bindDocument() {
	vm := w.vm
	dom := w.dom

	document := vm.NewObject()
	document.Set("title", dom.Title())
	document.Set("baseURI", dom.BaseURI())
	document.Set("URL", dom.URL().String())
	document.Set("documentURI", dom.URL().String())
	document.Set("readyState", "complete")
	document.Set("documentElement", w.element(dom.Root()))
	document.Set("head", w.first(dom.Query("head")))
	document.Set("body", w.first(dom.Query("body")))
	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return w.first(dom.Query(call.Argument(0).String()))
	})
	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return w.all(dom.Query(call.Argument(0).String()))
	})
	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		return w.first(dom.Query("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		}))
	})
	document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return w.all(dom.Query(call.Argument(0).String()))
	})

	vm.Set("document", document)
	vm.Set("location", w.urlObject(vm.NewObject(), dom.URL()))
}

func (w *Window) first(sel *goquery.Selection) goja.Value {
	if sel.Length() == 0 {
		return goja.Null()
	}
	return w.element(sel.First())
}

func (w *Window) all(sel *goquery.Selection) goja.Value {
	out := make([]interface{}, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, w.element(s))
	})
	return w.vm.NewArray(out...)
}

// element builds a read-only element view
func (w *Window) element(sel *goquery.Selection) goja.Value {
	if sel.Length() == 0 {
		return goja.Null()
	}
	vm := w.vm
	tag := strings.ToLower(goquery.NodeName(sel))
	attr := func(name string) string {
		v, _ := sel.Attr(name)
		return v
	}
	text := sel.Text()

	el := vm.NewObject()
	el.Set("tagName", strings.ToUpper(tag))
	el.Set("nodeName", strings.ToUpper(tag))
	el.Set("id", attr("id"))
	el.Set("className", attr("class"))
	el.Set("textContent", text)
	el.Set("innerText", strings.TrimSpace(text))
	el.Set("lang", attr("lang"))
	el.Set("name", attr("name"))
	el.Set("rel", attr("rel"))
	el.Set("content", attr("content"))

	switch tag {
	case "a", "area", "link", "base":
		el.Set("href", w.resolvedAttr(sel, "href"))
	case "img", "script", "iframe":
		el.Set("src", w.resolvedAttr(sel, "src"))
	}

	el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := sel.Attr(strings.ToLower(call.Argument(0).String()))
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	el.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := sel.Attr(strings.ToLower(call.Argument(0).String()))
		return vm.ToValue(ok)
	})
	el.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return w.first(sel.Find(call.Argument(0).String()))
	})
	el.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return w.all(sel.Find(call.Argument(0).String()))
	})
	return el
}

// resolvedAttr mirrors reflected URL attributes: absent is "", present is
// resolved against the base URI
func (w *Window) resolvedAttr(sel *goquery.Selection, name string) string {
	v, ok := sel.Attr(name)
	if !ok {
		return ""
	}
	return w.dom.Resolve(v)
}

// urlConstructor implements new URL(href, base?)
func (w *Window) urlConstructor(call goja.ConstructorCall) *goja.Object {
	href := call.Argument(0).String()

	var u *url.URL
	var err error
	if base := call.Argument(1); !goja.IsUndefined(base) && !goja.IsNull(base) {
		b, berr := url.Parse(base.String())
		if berr != nil || !b.IsAbs() {
			w.throwTypeError("Invalid base URL: %s", base.String())
		}
		u, err = b.Parse(strings.TrimSpace(href))
	} else {
		u, err = url.Parse(strings.TrimSpace(href))
	}
	if err != nil || !u.IsAbs() {
		w.throwTypeError("Invalid URL: %s", href)
	}

	w.urlObject(call.This, u)
	return nil
}

// urlObject fills obj with the URL/Location fields of u
func (w *Window) urlObject(obj *goja.Object, src *url.URL) *goja.Object {
	u := *src
	if u.Path == "" && u.Opaque == "" && u.Host != "" {
		u.Path = "/"
	}
	href := u.String()
	origin := u.Scheme + "://" + u.Host

	search := ""
	if u.RawQuery != "" {
		search = "?" + u.RawQuery
	}
	hash := ""
	if u.Fragment != "" {
		hash = "#" + u.EscapedFragment()
	}
	path := u.EscapedPath()

	obj.Set("href", href)
	obj.Set("origin", origin)
	obj.Set("protocol", u.Scheme+":")
	obj.Set("host", u.Host)
	obj.Set("hostname", u.Hostname())
	obj.Set("port", u.Port())
	obj.Set("pathname", path)
	obj.Set("search", search)
	obj.Set("hash", hash)
	obj.Set("toString", func(goja.FunctionCall) goja.Value { return w.vm.ToValue(href) })
	obj.Set("toJSON", func(goja.FunctionCall) goja.Value { return w.vm.ToValue(href) })
	return obj
}
