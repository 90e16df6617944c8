package preview

import (
	"regexp"
	"testing"

	"github.com/dop251/goja"
)

// fakeDOM is the smallest browser surface the panel script touches. Saves,
// canvas calls and opened views are recorded on the global "record" object.
const fakeDOM = `
var record = { saves: [], canvasCalls: [], opened: [] };
var canvasMode = 'ok';

function makeElement(tag) {
  var el = {
    tagName: tag,
    listeners: {},
    attributes: {},
    children: [],
    textContent: '',
    className: '',
    addEventListener: function (type, fn) { (this.listeners[type] = this.listeners[type] || []).push(fn); },
    dispatch: function (type) { (this.listeners[type] || []).forEach(function (fn) { fn({ type: type }); }); },
    getAttribute: function (name) { return this.attributes.hasOwnProperty(name) ? this.attributes[name] : null; },
    appendChild: function (child) { this.children.push(child); return child; },
    removeChild: function (child) { this.children = this.children.filter(function (c) { return c !== child; }); return child; }
  };
  if (tag === 'a') {
    el.click = function () { record.saves.push({ href: el.href, download: el.download }); };
  }
  if (tag === 'canvas') {
    el.getContext = function () {
      if (canvasMode === 'no-context') { return null; }
      return {
        fillRect: function (x, y, w, h) { record.canvasCalls.push('fillRect:' + this.fillStyle + ':' + w + 'x' + h); },
        drawImage: function () { record.canvasCalls.push('drawImage:' + el.width + 'x' + el.height); }
      };
    };
    el.toDataURL = function (mime) {
      if (canvasMode === 'png-only') { return 'data:image/png;base64,AAAA'; }
      return 'data:' + mime + ';base64,AAAA';
    };
  }
  return el;
}

function makeDocument() {
  var doc = { title: '', elements: {} };
  doc.body = makeElement('body');
  doc.createElement = function (tag) { return makeElement(tag); };
  doc.getElementById = function (id) { return doc.elements[id] || null; };
  return doc;
}

var document = makeDocument();
var image = makeElement('img');
image.src = 'data:image/png;base64,AAAA';
image.alt = 'a red circle';
image.complete = false;
image.naturalWidth = 0;
image.naturalHeight = 0;
image.attributes['data-default-format'] = DEFAULT_FORMAT;
image.attributes['data-auto-download'] = AUTO_DOWNLOAD;
document.elements['pf-image'] = image;
document.elements['pf-status'] = makeElement('p');
document.elements['pf-download-png'] = makeElement('button');
document.elements['pf-download-jpg'] = makeElement('button');

var window = {
  open: function () {
    var view = { document: makeDocument() };
    record.opened.push(view);
    return view;
  }
};

function click(id) { document.elements[id].dispatch('click'); }
function loadImage(w, h) { image.naturalWidth = w; image.naturalHeight = h; image.complete = true; image.dispatch('load'); }
function statusText() { return document.elements['pf-status'].textContent; }
`

type scriptHarness struct {
	t  *testing.T
	vm *goja.Runtime
}

func newScriptHarness(t *testing.T, defaultFormat string, autoDownload bool) *scriptHarness {
	t.Helper()
	return newScriptHarnessWithSetup(t, defaultFormat, autoDownload, "")
}

// newScriptHarnessWithSetup runs setup against the fake DOM before the panel
// script starts.
func newScriptHarnessWithSetup(t *testing.T, defaultFormat string, autoDownload bool, setup string) *scriptHarness {
	t.Helper()
	vm := goja.New()
	if err := vm.Set("DEFAULT_FORMAT", defaultFormat); err != nil {
		t.Fatalf("set DEFAULT_FORMAT: %v", err)
	}
	auto := "false"
	if autoDownload {
		auto = "true"
	}
	if err := vm.Set("AUTO_DOWNLOAD", auto); err != nil {
		t.Fatalf("set AUTO_DOWNLOAD: %v", err)
	}
	if _, err := vm.RunString(fakeDOM); err != nil {
		t.Fatalf("fake dom: %v", err)
	}
	if setup != "" {
		if _, err := vm.RunString(setup); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	if _, err := vm.RunString(panelScript); err != nil {
		t.Fatalf("panel script: %v", err)
	}
	return &scriptHarness{t: t, vm: vm}
}

func (h *scriptHarness) run(src string) goja.Value {
	h.t.Helper()
	v, err := h.vm.RunString(src)
	if err != nil {
		h.t.Fatalf("run %q: %v", src, err)
	}
	return v
}

func (h *scriptHarness) int(src string) int64 {
	h.t.Helper()
	return h.run(src).ToInteger()
}

func (h *scriptHarness) str(src string) string {
	h.t.Helper()
	return h.run(src).String()
}

var fileNamePattern = regexp.MustCompile(`^pixelforge-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.\d{3}Z\.(png|jpg)$`)

func TestScriptRejectsDownloadBeforeLoad(t *testing.T) {
	h := newScriptHarness(t, FormatPNG, false)

	h.run(`click('pf-download-png'); click('pf-download-jpg')`)

	if got := h.int(`record.saves.length`); got != 0 {
		t.Fatalf("saves = %d, want 0 before load", got)
	}
	if got := h.int(`record.canvasCalls.length`); got != 0 {
		t.Fatalf("canvas touched before load: %d calls", got)
	}
	if got := h.str(`statusText()`); got != "Please wait for the image to finish loading." {
		t.Fatalf("status = %q", got)
	}
}

func TestScriptDownloadsPNGAfterLoad(t *testing.T) {
	h := newScriptHarness(t, FormatPNG, false)

	h.run(`loadImage(640, 480); click('pf-download-png')`)

	if got := h.int(`record.saves.length`); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	name := h.str(`record.saves[0].download`)
	if !fileNamePattern.MatchString(name) || name[len(name)-4:] != ".png" {
		t.Fatalf("file name = %q", name)
	}
	if href := h.str(`record.saves[0].href`); href != "data:image/png;base64,AAAA" {
		t.Fatalf("href = %q", href)
	}
	if calls := h.str(`record.canvasCalls.join('|')`); calls != "drawImage:640x480" {
		t.Fatalf("canvas calls = %q, want draw at natural size without fill", calls)
	}
}

func TestScriptDownloadsJPGOnWhiteBackground(t *testing.T) {
	h := newScriptHarness(t, FormatPNG, false)

	h.run(`loadImage(32, 16); click('pf-download-jpg')`)

	if calls := h.str(`record.canvasCalls.join('|')`); calls != "fillRect:#ffffff:32x16|drawImage:32x16" {
		t.Fatalf("canvas calls = %q", calls)
	}
	name := h.str(`record.saves[0].download`)
	if !fileNamePattern.MatchString(name) || name[len(name)-4:] != ".jpg" {
		t.Fatalf("file name = %q", name)
	}
	if href := h.str(`record.saves[0].href`); href != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("href = %q", href)
	}
}

func TestScriptFallsBackWithoutCanvas(t *testing.T) {
	h := newScriptHarness(t, FormatPNG, false)

	h.run(`canvasMode = 'no-context'; loadImage(8, 8); click('pf-download-png')`)

	if got := h.int(`record.saves.length`); got != 0 {
		t.Fatalf("saves = %d, want 0", got)
	}
	if got := h.int(`record.opened.length`); got != 1 {
		t.Fatalf("opened views = %d, want 1", got)
	}
	if src := h.str(`record.opened[0].document.body.children[1].src`); src != "data:image/png;base64,AAAA" {
		t.Fatalf("fallback view image src = %q", src)
	}
	if hint := h.str(`record.opened[0].document.body.children[0].textContent`); hint == "" {
		t.Fatal("fallback view lacks manual save instruction")
	}
}

func TestScriptFallsBackWhenEncoderUnsupported(t *testing.T) {
	h := newScriptHarness(t, FormatPNG, false)

	h.run(`canvasMode = 'png-only'; loadImage(8, 8); click('pf-download-jpg')`)

	if got := h.int(`record.saves.length`); got != 0 {
		t.Fatalf("saves = %d, want 0", got)
	}
	if got := h.int(`record.opened.length`); got != 1 {
		t.Fatalf("opened views = %d, want 1", got)
	}
}

func TestScriptReportsLoadFailure(t *testing.T) {
	h := newScriptHarness(t, FormatPNG, false)

	h.run(`image.dispatch('error'); click('pf-download-png')`)

	if got := h.int(`record.saves.length`); got != 0 {
		t.Fatalf("saves = %d, want 0", got)
	}
	if got := h.str(`document.elements['pf-status'].className`); got != "status error" {
		t.Fatalf("status class = %q", got)
	}
}

func TestScriptAutoDownloadsDefaultFormat(t *testing.T) {
	h := newScriptHarness(t, FormatJPG, true)

	if got := h.int(`record.saves.length`); got != 0 {
		t.Fatalf("auto download fired before load")
	}
	h.run(`loadImage(10, 10)`)

	if got := h.int(`record.saves.length`); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	if name := h.str(`record.saves[0].download`); name[len(name)-4:] != ".jpg" {
		t.Fatalf("auto download used wrong format: %q", name)
	}
}

func TestScriptAutoDownloadsOnceWhenImageAlreadyComplete(t *testing.T) {
	h := newScriptHarnessWithSetup(t, FormatPNG, true, `image.complete = true; image.naturalWidth = 10; image.naturalHeight = 10;`)

	if got := h.int(`record.saves.length`); got != 1 {
		t.Fatalf("saves after start = %d, want 1", got)
	}
	h.run(`image.dispatch('load')`)
	if got := h.int(`record.saves.length`); got != 1 {
		t.Fatalf("auto download fired %d times, want 1", got)
	}
}

func TestScriptReportsLoadFailureOnceWhenImageAlreadyBroken(t *testing.T) {
	h := newScriptHarnessWithSetup(t, FormatPNG, true, `image.complete = true; image.naturalWidth = 0;`)

	h.run(`document.elements['pf-status'].textContent = ''; image.dispatch('error'); image.dispatch('load')`)
	if got := h.str(`statusText()`); got != "" {
		t.Fatalf("status rewritten by a late event: %q", got)
	}
	if got := h.int(`record.saves.length`); got != 0 {
		t.Fatalf("saves = %d, want 0 for a broken image", got)
	}
}
