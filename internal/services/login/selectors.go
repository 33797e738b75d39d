package login

const (
	emailSelector     = `input[name="email"], input[type="email"], input[name="username"], input[placeholder*="email" i]`
	passwordSelector  = `input[type="password"]`
	twoFactorSelector = `input[autocomplete="one-time-code"], input[name="code"], input[placeholder*="code" i], input[maxlength="6"]`
	errorSelector     = `.error-message, [role="alert"], .theme-arco-form-item-message`
)

// submitButtonSelectors are tried in order, most specific first, so a generic
// submit selector never wins over the login button when a sign-up form is also on the page
var submitButtonSelectors = []string{
	`button[data-e2e="login-button"]`,
	`form button[type="submit"]:not([disabled])`,
}

const genericSubmitSelector = `button[type="submit"]`

// clickLoginTextScript clicks the first enabled button labelled "Log in" and reports whether it did
const clickLoginTextScript = `(() => {
	const labels = ['log in', 'login'];
	const buttons = Array.from(document.querySelectorAll('button'));
	const match = buttons.find(b => !b.disabled && labels.includes((b.innerText || '').trim().toLowerCase()));
	if (!match) { return false; }
	match.click();
	return true;
})()`
