package support

type topic struct {
	keywords []string
	reply    string
}

// topics are tried in order; the first match wins.
var topics = []topic{
	{
		keywords: []string{"account", "balance", "statement", "login"},
		reply: "I can help you with your account! For account balance inquiries, please log into your {bank} mobile app or visit our website. " +
			"If you're having trouble logging in, please verify your email and password. " +
			"For detailed account statements, you can download them from the 'Statements' section in your dashboard.",
	},
	{
		keywords: []string{"transaction", "transfer", "payment", "send money"},
		reply: "For transaction assistance: You can transfer money between your accounts instantly through our app. " +
			"For external transfers, please ensure you have the correct recipient details. " +
			"Transaction history is available in your account dashboard. " +
			"If you notice any unauthorized transactions, please contact us immediately.",
	},
	{
		keywords: []string{"bill", "pay", "utilities", "electricity", "water"},
		reply: "{bank} makes bill payments easy! You can pay utilities, mobile money top-ups, and other bills directly through our app. " +
			"Set up automatic payments to never miss a due date. " +
			"We support all major Zambian utility companies and service providers.",
	},
	{
		keywords: []string{"loan", "credit", "borrow", "mortgage"},
		reply: "We offer competitive loan products including personal loans, business loans, and mortgages. " +
			"Loan applications can be submitted online with instant pre-approval for qualified customers. " +
			"Interest rates start from 12% per annum. Please visit our loans section in the app or speak with one of our loan officers.",
	},
	{
		keywords: []string{"fraud", "security", "hack", "stolen", "suspicious"},
		reply: "Security is our top priority at {bank}. If you suspect fraudulent activity, please immediately: " +
			"1) Log into your account to review transactions, 2) Change your password, 3) Contact our fraud department at {phone}. " +
			"We have 24/7 fraud monitoring and will investigate any suspicious activity.",
	},
	{
		keywords: []string{"atm", "card", "pin", "withdraw"},
		reply: "Our ATM network spans across Zambia for your convenience. Daily withdrawal limits apply based on your account type. " +
			"If your card is lost or stolen, report it immediately through the app or call our hotline. " +
			"PIN changes can be done at any {bank} ATM or through the mobile app.",
	},
	{
		keywords: []string{"hours", "open", "contact", "phone", "branch"},
		reply: "{bank} branches are open Monday-Friday 8:00 AM - 5:00 PM, Saturday 8:00 AM - 1:00 PM. " +
			"Our digital services are available 24/7. Contact us: Phone: {phone}, Email: {email}. " +
			"Find your nearest branch using our branch locator in the app.",
	},
}

const defaultReply = "Thank you for contacting {bank}! I'm here to help you with your banking needs. " +
	"Could you please provide more specific details about what you'd like assistance with? " +
	"Our team is available 24/7 to support you with account management, transactions, loans, and general banking services."

var escalation = []string{
	"complaint", "dispute", "error", "problem", "issue",
	"wrong", "incorrect", "fraud", "unauthorized", "stolen",
	"appeal", "escalate", "manager", "supervisor",
}

type suggestion struct {
	keywords []string
	actions  string
}

var suggestions = []suggestion{
	{[]string{"balance", "statement"}, "Check account balance in mobile app, Download statements, View transaction history"},
	{[]string{"transfer", "payment"}, "Use mobile app for transfers, Set up beneficiaries, Schedule future payments"},
	{[]string{"loan", "credit"}, "Apply for loan online, Check eligibility, Calculate EMI, Speak with loan officer"},
}

const defaultActions = "Visit mobile app, Contact branch, Call customer service, Use online banking"
