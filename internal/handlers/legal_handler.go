package handlers

import (
	"html"

	"github.com/gofiber/fiber/v2"
)

const legalStyle = `<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}h2{color:#444;margin-top:30px}</style>`

type LegalHandler struct {
	appName      string
	supportEmail string
}

func NewLegalHandler(appName, supportEmail string) *LegalHandler {
	return &LegalHandler{
		appName:      html.EscapeString(appName),
		supportEmail: html.EscapeString(supportEmail),
	}
}

func (h *LegalHandler) PrivacyPolicy(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Privacy Policy - ` + h.appName + `</title>
` + legalStyle + `
</head><body>
<h1>Privacy Policy</h1>
<p>Last updated: October 2026</p>
<h2>Information We Collect</h2>
<p>We collect a parent or guardian's email address or phone number, the first names and age groups of child profiles they create, and the drawings they upload to make a story.</p>
<h2>Children's Privacy</h2>
<p>Child profiles are created and managed by a consenting adult. We do not knowingly collect contact details from children, and we do not show advertising to child profiles.</p>
<h2>How We Use Your Information</h2>
<p>Uploaded drawings and story choices are used only to generate stories, illustrations and narration in ` + h.appName + `. We do not sell your personal information.</p>
<h2>Data Storage</h2>
<p>Your data is stored on encrypted servers. Generated books remain available in your account until you ask us to remove them.</p>
<h2>Contact</h2>
<p>For questions about this policy, contact us at ` + h.supportEmail + `</p>
</body></html>`)
}

func (h *LegalHandler) TermsOfService(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Terms of Service - ` + h.appName + `</title>
` + legalStyle + `
</head><body>
<h1>Terms of Service</h1>
<p>Last updated: October 2026</p>
<h2>Acceptance</h2>
<p>By using ` + h.appName + `, you agree to these terms and confirm you are an adult or have a guardian's permission.</p>
<h2>Content</h2>
<p>You may only upload drawings you have the right to use. Story text is filtered for children's audiences and requests that fail moderation are rejected.</p>
<h2>Purchases</h2>
<p>Free accounts can preview the first pages of each story. Unlocking a story grants full access to books, PDFs and narration for thirty days.</p>
<h2>Termination</h2>
<p>We may suspend accounts that misuse the service.</p>
<h2>Contact</h2>
<p>For questions, contact us at ` + h.supportEmail + `</p>
</body></html>`)
}
