package fake

import "github.com/zhoujuxi2028/consoleqa/internal/browser"

// NewConsole returns a driver with a logged in frameset console. The left menu
// "Administration" entry expands the "System Updates" entry that loads systemUpdatesText
// in the right frame.
func NewConsole(systemUpdatesText string) *Driver {
	return NewConsolePage(Page{Text: systemUpdatesText})
}

// NewConsolePage is like NewConsole but the system updates page can have elements, e.g
// the update and rollback buttons.
func NewConsolePage(systemUpdates Page) *Driver {
	d := NewDriver()
	loadFrameset(d, systemUpdates)
	return d
}

// NewLoginConsole returns a driver showing the console login page, submitting it loads
// the same frameset NewConsole has.
func NewLoginConsole(systemUpdatesText string) *Driver {
	d := NewDriver()
	d.SetPage(browser.TopContext, Page{
		Text: "Log on with your user name and password",
		Elements: []Element{
			{Tag: "input", Text: "Log On", OnClick: func() { loadFrameset(d, Page{Text: systemUpdatesText}) }},
		},
	})
	return d
}

func loadFrameset(d *Driver, systemUpdates Page) {
	var expand func()
	menu := func(extra ...Element) Page {
		es := []Element{{Text: "Summary"}, {Text: "Administration", OnClick: expand}}
		return Page{Elements: append(es, extra...)}
	}
	expand = func() {
		d.SetPage("left", menu(Element{Text: "System Updates", OnClick: func() {
			d.SetPage("right", systemUpdates)
		}}))
	}

	d.SetPage(browser.TopContext, Page{Text: "InterScan Web Security Virtual Appliance"})
	d.SetPage("tophead", Page{Text: "InterScan Web Security Virtual Appliance", Elements: []Element{{Text: "Log Off"}}})
	d.SetPage("left", menu())
	d.SetPage("right", Page{Text: "Summary"})
}
