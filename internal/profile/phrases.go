package profile

// Phrase tables for the best-effort query tagger.
//
// These are deliberately plain substring rules rather than a trained
// classifier: every rule is auditable, and false negatives (including
// negated phrases such as "not good at maths") are accepted behavior.
// Matching is case-insensitive; the query is lowercased once and each
// phrase is checked with strings.Contains.

// subjectPhrases maps an NSC subject to context phrases. The same table
// serves strengths and weaknesses: a subject phrase found inside a
// strength window tags a strength, inside a weakness window a weakness.
var strengthPhrases = map[string][]string{
	"Mathematics": {
		"good at maths", "good at math", "good at mathematics",
		"strong in maths", "strong in mathematics",
		"love maths", "love math", "enjoy maths", "enjoy mathematics",
		"best subject is maths", "best subject is mathematics",
		"maths is my best", "top marks in maths",
	},
	"Physical Sciences": {
		"good at science", "good at physics", "good at physical sciences",
		"strong in science", "strong in physical sciences",
		"love science", "love physics", "enjoy science",
		"best subject is science", "top marks in science",
	},
	"Life Sciences": {
		"good at biology", "good at life sciences",
		"love biology", "enjoy biology", "strong in life sciences",
	},
	"English": {
		"good at english", "strong in english", "love english",
		"enjoy english", "good at writing", "love writing",
	},
	"Accounting": {
		"good at accounting", "strong in accounting", "love accounting",
		"enjoy accounting", "good with numbers",
	},
	"Economics": {
		"good at economics", "strong in economics", "enjoy economics",
	},
	"Geography": {
		"good at geography", "strong in geography", "enjoy geography",
	},
	"History": {
		"good at history", "strong in history", "enjoy history",
	},
}

var weaknessPhrases = map[string][]string{
	"Mathematics": {
		"bad at maths", "bad at math", "bad at mathematics",
		"struggle with maths", "struggle with math", "struggling with maths",
		"weak in maths", "weak in mathematics", "failing maths", "fail maths",
		"hate maths", "maths is hard",
	},
	"Physical Sciences": {
		"bad at science", "bad at physics", "struggle with science",
		"struggling with science", "weak in science", "failing science",
		"hate science", "science is hard",
	},
	"Life Sciences": {
		"bad at biology", "struggle with biology", "failing biology",
	},
	"English": {
		"bad at english", "struggle with english", "struggling with english",
		"weak in english", "failing english",
	},
	"Accounting": {
		"bad at accounting", "struggle with accounting", "failing accounting",
	},
}

// interestPhrases maps an interest tag to trigger phrases.
var interestPhrases = map[string][]string{
	"technology": {
		"technology", "computers", "computer", "coding", "programming",
		"software", "apps", "gaming", "robotics", "artificial intelligence",
	},
	"data": {
		"data science", "data analysis", "statistics", "working with data",
	},
	"healthcare": {
		"medicine", "doctor", "nursing", "nurse", "healthcare",
		"helping sick people", "hospital",
	},
	"engineering": {
		"engineering", "engineer", "building things", "machines",
	},
	"business": {
		"business", "entrepreneur", "own company", "start-up", "startup",
		"finance", "investing",
	},
	"law": {
		"law", "lawyer", "advocate", "attorney", "justice",
	},
	"education": {
		"teaching", "teacher", "educator",
	},
	"creative": {
		"art", "design", "music", "drama", "creative", "drawing", "film",
	},
	"people": {
		"helping people", "working with people", "community", "social work",
	},
}

// highNeedPhrases signal that the student cannot fund study without
// assistance. Checked before moderate phrases: when both match, the
// profile resolves to high need. Erring toward more support is the
// intended precedence.
var highNeedPhrases = []string{
	"can't afford", "cannot afford", "cant afford",
	"no money", "don't have money", "dont have money",
	"no funds", "need a bursary", "need bursary", "need a scholarship",
	"need financial aid", "need funding", "nsfas",
	"parents are unemployed", "family can't pay", "family cannot pay",
	"too expensive for us",
}

// moderateNeedPhrases signal cost sensitivity short of outright inability.
var moderateNeedPhrases = []string{
	"affordable", "cheap", "cheaper", "low cost", "on a budget",
	"worried about fees", "worried about the cost", "fees are high",
	"money is tight", "financial help", "bursary", "scholarship",
}
