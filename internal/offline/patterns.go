package offline

// Category groups patterns by the kind of question they answer
type Category string

const (
	CategoryCareer    Category = "career"
	CategoryStream    Category = "stream"
	CategoryEducation Category = "education"
	CategoryGeneral   Category = "general"
)

// Pattern is a static rule: keywords to match, a canned response and a
// base confidence. Patterns are loaded once and never mutated. Their
// declaration order doubles as a priority list when scores tie.
type Pattern struct {
	Keywords   []string
	Response   string
	Confidence float64
	Category   Category
}

// defaultPatterns is the built-in rule set for career guidance in J&K.
// Response templates may reference {firstName}, {district} and
// {classLevel}; the engine substitutes them at match time.
var defaultPatterns = []Pattern{
	{
		Keywords:   []string{"doctor", "medical", "medicine", "mbbs", "surgeon", "physician"},
		Confidence: 0.9,
		Category:   CategoryCareer,
		Response: `Great choice! To become a doctor in J&K:

Stream required: Science (Biology, Chemistry, Physics)
Entrance exam: NEET
Top colleges: GMC Srinagar, GMC Jammu
Scholarships: PM-YASASVI, J&K Merit scholarships
Success rate: 40+ students from rural J&K clear NEET every year

Next steps:
1. Choose the Science stream in 11th
2. Focus on NCERT Biology and Chemistry
3. Join coaching or affordable online prep

What specific medical field interests you most?`,
	},
	{
		Keywords:   []string{"engineer", "engineering", "technical", "jee", "computer", "civil", "mechanical"},
		Confidence: 0.9,
		Category:   CategoryCareer,
		Response: `Excellent choice! The engineering path in J&K:

Stream required: Science (Physics, Chemistry, Maths)
Entrance exams: JEE Main, JEE Advanced
Local options: NIT Srinagar, IIIT Kashmir, GCET
Job market: 85% placement rate, Rs 4-15L starting salary
Specializations: Computer, Civil, Electrical, Mechanical

Quick start plan:
1. Master Physics and Maths fundamentals
2. Practice JEE previous papers
3. Use free resources like Khan Academy and NPTEL

Which engineering field excites you - software, construction, or machines?`,
	},
	{
		Keywords:   []string{"teacher", "teaching", "education", "professor", "tutor"},
		Confidence: 0.8,
		Category:   CategoryCareer,
		Response: `Teaching is a noble profession! Your path in J&K:

Requirements: Graduate degree + B.Ed
Opportunities: Government schools, private coaching, online tutoring
Salary range: Rs 25,000-80,000/month for government teachers
Advantages: Secure job, social respect, holidays

Career steps:
1. Choose your favourite subject for graduation
2. Complete B.Ed from a recognized college
3. Appear for J&K TET / School Service Selection

What subjects do you enjoy explaining to friends?`,
	},
	{
		Keywords:   []string{"business", "commerce", "ca", "management", "entrepreneur", "shop"},
		Confidence: 0.8,
		Category:   CategoryCareer,
		Response: `Great business mindset! Commerce opportunities in J&K:

Stream options: Commerce, Business Studies
Career paths: CA, CS, MBA, or your own business
Local scope: Tourism, handicrafts, agriculture business
Earning potential: Rs 30,000-2,00,000+ depending on the role

Popular options:
- CA: 3-year course, Rs 8-50L annually
- MBA: management roles after graduation
- Own business: local resources plus tourism

Government support includes MUDRA loans for startups and skill
development programmes.

What type of business interests you - traditional or modern?`,
	},
	{
		Keywords:   []string{"stream", "subject", "11th", "science", "commerce", "arts"},
		Confidence: 0.9,
		Category:   CategoryStream,
		Response: `Perfect timing for stream selection, {firstName}! The short guide:

Science: for engineering, medical and research careers.
Subjects are Physics, Chemistry, Biology/Maths. Best if you like
logical thinking and problem-solving.

Commerce: for business, finance and management.
Subjects are Accountancy, Business Studies, Economics. Best if you
like numbers and business sense.

Arts/Humanities: for civil services, teaching and media.
Subjects are History, Political Science, Psychology. Best if you
like reading, writing and social understanding.

What do you enjoy most - solving problems, managing things, or helping people?`,
	},
	{
		Keywords:   []string{"college", "university", "admission", "course", "degree"},
		Confidence: 0.7,
		Category:   CategoryEducation,
		Response: `Let's plan your higher education in J&K:

Top universities: University of Kashmir (Srinagar), University of
Jammu, SKUAST, NIT Srinagar.

Admission process: merit-based for most courses, entrance exams for
professional ones, reservation as per J&K policy.

Financial support: fee waivers for economically weak students,
scholarship schemes, education loans at low interest.

Most admissions open June-July.

Which field are you most interested in for your degree?`,
	},
	{
		Keywords:   []string{"confused", "don't know", "help", "guide", "lost"},
		Confidence: 0.6,
		Category:   CategoryGeneral,
		Response: `It's completely normal to feel confused - you're making important
life decisions, {firstName}!

Let's break it down step by step:
1. What subjects do you enjoy most in school?
2. Do you like helping people or solving technical problems?
3. Are you more into creative work or structured work?
4. Do you prefer working alone or with teams?

Every successful person started with questions, and many J&K
students found their path through exploration.

Tell me about one subject or activity that makes you excited!`,
	},
	{
		Keywords:   []string{"kashmir", "jammu", "srinagar", "j&k", "local", "here"},
		Confidence: 0.8,
		Category:   CategoryGeneral,
		Response: `Great to see interest in local opportunities! J&K has real potential:

Growing sectors: tourism, organic farming and food processing,
handicrafts with modern marketing, and a growing IT scene in Srinagar.

Government jobs: J&K Administrative Service, banking (J&K Bank
preference), teaching positions, police and civil services.

Many students from remote districts like {district} are now doctors,
engineers and IAS officers. Local knowledge plus modern skills is a
strong combination.

What aspect of J&K's development interests you most?`,
	},
}

// fallbackTemplates are used when no pattern scores well enough
var fallbackTemplates = []string{
	`That's an interesting question, {firstName}! While I don't have specific information about that in offline mode, I can help you explore career options that relate to your interests. What subjects do you enjoy most in {classLevel} class?`,

	`{firstName}, I want to give you the best possible guidance! Since I'm in offline mode right now, let me ask - are you more interested in careers that involve helping people, working with technology, or being creative?`,

	`Good question! From {district}, many students have succeeded in all kinds of fields. Since I'm offline right now, let's think it through step by step. What kind of work environment appeals to you - indoors like offices, or outdoors like fields?`,

	`{firstName}, I appreciate your question! In offline mode I can still cover the basics. For {classLevel} students the most important thing is choosing the right stream. Are you leaning towards Science, Commerce, or Arts?`,
}

// greetings may be prefixed to a matched response
var greetings = []string{
	"Hi {firstName}! ",
	"Great question, {firstName}! ",
	"{firstName}, I'm excited to help! ",
	"Perfect timing, {firstName}! ",
}
