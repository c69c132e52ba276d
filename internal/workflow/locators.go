// File: internal/workflow/locators.go
package workflow

import (
	"github.com/mamamind47/dsl-autofill/internal/config"
	"github.com/mamamind47/dsl-autofill/internal/paths"
)

// ClickStrategy selects how an element gets activated. The portal hides some
// controls behind styled labels and spinner overlays, so a plain mouse click
// does not work everywhere.
type ClickStrategy int

const (
	// StandardClick dispatches a regular CDP click on the element.
	StandardClick ClickStrategy = iota
	// DirectClick invokes element.click() from JavaScript. Needed for the
	// hidden checkbox and radio inputs behind styled labels.
	DirectClick
	// AutoClick waits for the loading overlay to clear, then clicks via
	// JavaScript so a lingering overlay cannot swallow the event.
	AutoClick
)

// Locator names one element on the portal together with how to click it.
type Locator struct {
	Selector string
	Label    string
	Strategy ClickStrategy
}

// Overlay selectors that block input while the portal loads data.
var OverlaySelectors = []string{
	".ngx-spinner-overlay",
	"[class*='spinner-overlay']",
	"[class*='loading-overlay']",
}

// Login page elements, shared by both workflow variants.
type LoginLocators struct {
	Username Locator
	Password Locator
	Submit   Locator
}

// DefaultLoginLocators returns the portal's login form elements.
func DefaultLoginLocators() LoginLocators {
	return LoginLocators{
		Username: Locator{Selector: "#username", Label: "username field"},
		Password: Locator{Selector: "#password", Label: "password field"},
		Submit:   Locator{Selector: "#button", Label: "login button", Strategy: StandardClick},
	}
}

// LocatorSet holds every element one workflow variant touches, in the order
// the flow uses them.
type LocatorSet struct {
	CategoryRadio    Locator
	SearchInput      Locator
	SearchButton     Locator
	RowActionButton  Locator
	ConsentAddress1  Locator
	ConsentAddress2  Locator
	ConsentContract2 Locator // contract checkbox when the page shows two boxes
	ConsentContract3 Locator // contract checkbox when the page shows three boxes
	ConsentConfirm   Locator
	GoToUpload       Locator
	FileInput        Locator
	UploadConfirm    Locator
	BackToStart      Locator
}

// Variant bundles everything that differs between the two portal workflows.
type Variant struct {
	// Name is the short identifier used for directories and log fields.
	Name string
	// Title is the human readable feature name shown in menus.
	Title string
	// ListURL is the working page the flow starts from after login.
	ListURL string
	// NewItemCaption is the row button text for an item that still needs the
	// consent step.
	NewItemCaption string
	// ImportCaption is the row button text for an item whose consent is
	// already done. Empty when the variant has no such shortcut.
	ImportCaption string
	// CompletedText, when non empty, marks an item the portal reports as
	// already finished. Shown in place of the results table.
	CompletedText string
	// CompletedTextSelector scopes where CompletedText may appear.
	CompletedTextSelector string

	Locators LocatorSet
}

const disbursementRoot = "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-disbursement"
const disbursementConsentRoot = "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-disbursement-consent-doc"
const signContractRoot = "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-sign-contract"
const signContractConsentRoot = "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-sign-contract-consent-doc"

// NewDisbursementVariant describes the loan disbursement confirmation flow.
func NewDisbursementVariant(cfg *config.Config) Variant {
	return Variant{
		Name:                  paths.DisbursementDir,
		Title:                 "Loan disbursement confirmation",
		ListURL:               cfg.Portal.DisbursementURL,
		NewItemCaption:        "ยืนยันการเบิกเงินกู้ยืม",
		ImportCaption:         "นำเข้าเอกสาร",
		CompletedText:         "ทำแบบเบิกเงินกู้ยืมสำเร็จ",
		CompletedTextSelector: "p.text-green-chartreuse",
		Locators: LocatorSet{
			CategoryRadio: Locator{
				Selector: `input[name="radio2"][value="B"]`,
				Label:    "category radio",
				Strategy: DirectClick,
			},
			SearchInput: Locator{
				Selector: disbursementRoot + " > main > section[class*='criteria search'] > dsl-workspace-form-search-v2 > div[class*='form-search'] > form > div > div > div:nth-child(5) > input",
				Label:    "search input",
			},
			SearchButton: Locator{
				Selector: disbursementRoot + " > main > section[class*='criteria search'] > dsl-workspace-form-search-v2 > div:nth-child(3) > footer > div > dsl-workspace-button:nth-child(2) > button",
				Label:    "search button",
				Strategy: AutoClick,
			},
			RowActionButton: Locator{
				Selector: disbursementRoot + " > main > section[class*='data-table'].full.rounded-none > dsl-workspace-table-v2 > div.max-w-full.overflow-x-auto > table > tbody > tr > td:nth-child(8) > div > div:nth-child(1) > dsl-workspace-button > button",
				Label:    "row action button",
				Strategy: AutoClick,
			},
			ConsentAddress1: Locator{
				Selector: disbursementConsentRoot + " > main > div.px-20.mt-12.ng-star-inserted > section:nth-child(2) > app-address-panel > div > label > input",
				Label:    "address checkbox",
				Strategy: DirectClick,
			},
			ConsentAddress2: Locator{
				Selector: disbursementConsentRoot + " > main > div.px-20.mt-12.ng-star-inserted > section.ng-star-inserted > app-address-panel > div > label > input",
				Label:    "second address checkbox",
				Strategy: DirectClick,
			},
			ConsentContract2: Locator{
				Selector: disbursementConsentRoot + " > main > div.px-20.mt-12.ng-star-inserted > section:nth-child(4) > dsl-workspace-confirm-contract-panel > label > input",
				Label:    "contract checkbox",
				Strategy: DirectClick,
			},
			ConsentContract3: Locator{
				Selector: disbursementConsentRoot + " > main > div.px-20.mt-12.ng-star-inserted > section:nth-child(5) > dsl-workspace-confirm-contract-panel > label > input",
				Label:    "contract checkbox",
				Strategy: DirectClick,
			},
			ConsentConfirm: Locator{
				Selector: disbursementConsentRoot + " > footer > dsl-workspace-button.ng-star-inserted > button",
				Label:    "consent confirm button",
				Strategy: AutoClick,
			},
			GoToUpload: Locator{
				Selector: "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-disbursement-consent-success > main > section > div.flex.gap-9.justify-center.my-6 > dsl-workspace-button > button",
				Label:    "go to upload button",
			},
			FileInput: Locator{
				Selector: "#frontImage0",
				Label:    "file input",
			},
			UploadConfirm: Locator{
				Selector: "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-disbursement-import-file > footer > dsl-workspace-button.ng-star-inserted > button",
				Label:    "upload confirm button",
				Strategy: AutoClick,
			},
			BackToStart: Locator{
				Selector: "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-disbursement-import-file-success > main > section > div.flex.gap-9.justify-center.my-6 > dsl-workspace-button > button",
				Label:    "back to start button",
			},
		},
	}
}

// NewSignContractVariant describes the contract signing flow.
func NewSignContractVariant(cfg *config.Config) Variant {
	return Variant{
		Name:           paths.SignContractDir,
		Title:          "Loan contract signing",
		ListURL:        cfg.Portal.SignContractURL,
		NewItemCaption: "ลงนามสัญญา",
		Locators: LocatorSet{
			CategoryRadio: Locator{
				Selector: `input[name="radio2"][value="B"]`,
				Label:    "category radio",
				Strategy: DirectClick,
			},
			SearchInput: Locator{
				Selector: signContractRoot + " > main > section[class*='criteria search'] > dsl-workspace-form-search-v2 > div[class*='form-search'] > form > div > div > div:nth-child(5) > input",
				Label:    "search input",
			},
			SearchButton: Locator{
				Selector: signContractRoot + " > main > section[class*='criteria search'] > dsl-workspace-form-search-v2 > div:nth-child(3) > footer > div > dsl-workspace-button:nth-child(2) > button",
				Label:    "search button",
				Strategy: AutoClick,
			},
			RowActionButton: Locator{
				Selector: signContractRoot + " > main > section[class*='data-table'].full.rounded-none > dsl-workspace-table-v2 > div.max-w-full.overflow-x-auto > table > tbody > tr > td:nth-child(8) > div > div:nth-child(1) > dsl-workspace-button > button",
				Label:    "row action button",
				Strategy: AutoClick,
			},
			ConsentAddress1: Locator{
				Selector: signContractConsentRoot + " > main > div > section:nth-child(2) > app-address-panel > div > label > input",
				Label:    "address checkbox",
				Strategy: DirectClick,
			},
			ConsentAddress2: Locator{
				Selector: signContractConsentRoot + " > main > div > section.ng-star-inserted > app-address-panel > div > label > input",
				Label:    "second address checkbox",
				Strategy: DirectClick,
			},
			ConsentContract2: Locator{
				Selector: signContractConsentRoot + " > main > div > section:nth-child(3) > dsl-workspace-confirm-contract-panel > label > input",
				Label:    "contract checkbox",
				Strategy: DirectClick,
			},
			ConsentContract3: Locator{
				Selector: signContractConsentRoot + " > main > div > section:nth-child(4) > dsl-workspace-confirm-contract-panel > label > input",
				Label:    "contract checkbox",
				Strategy: DirectClick,
			},
			ConsentConfirm: Locator{
				Selector: signContractConsentRoot + " > footer > dsl-workspace-button.ng-star-inserted > button",
				Label:    "consent confirm button",
				Strategy: AutoClick,
			},
			GoToUpload: Locator{
				Selector: "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-sign-contract-consent-success > main > section > div.flex.gap-9.justify-center.my-6 > dsl-workspace-button:nth-child(2) > button",
				Label:    "go to upload button",
			},
			FileInput: Locator{
				Selector: "#frontImage0",
				Label:    "file input",
			},
			UploadConfirm: Locator{
				Selector: "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-sign-contract-import-file > footer > dsl-workspace-button.ng-star-inserted > button",
				Label:    "upload confirm button",
				Strategy: AutoClick,
			},
			BackToStart: Locator{
				Selector: "body > dsl-workspace-root > app-content-layout > div > div > main > article > dsl-workspace-sign-contract-import-file-success > main > section > div.flex.gap-9.justify-center.my-6 > dsl-workspace-button:nth-child(1) > button",
				Label:    "back to start button",
			},
		},
	}
}
