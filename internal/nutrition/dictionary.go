package nutrition

// misreads maps OCR confusions seen on pet food labels to the intended word.
// Keys are folded lower-case.
var misreads = map[string]string{
	"chlcken":       "chicken",
	"chiken":        "chicken",
	"chickn":        "chicken",
	"ch1cken":       "chicken",
	"cnicken":       "chicken",
	"rlce":          "rice",
	"r1ce":          "rice",
	"ricc":          "rice",
	"salrnon":       "salmon",
	"sa1mon":        "salmon",
	"turkcy":        "turkey",
	"lamh":          "lamb",
	"1amb":          "lamb",
	"bcef":          "beef",
	"protcin":       "protein",
	"proteln":       "protein",
	"moistnre":      "moisture",
	"rnoisture":     "moisture",
	"fiher":         "fiber",
	"flber":         "fiber",
	"sodiurn":       "sodium",
	"ca1cium":       "calcium",
	"phosphorns":    "phosphorus",
	"vegetabies":    "vegetables",
	"vegetab1es":    "vegetables",
	"brovvn":        "brown",
	"oatrneal":      "oatmeal",
	"barlcy":        "barley",
	"ingredlents":   "ingredients",
	"lngredients":   "ingredients",
	"carbohydratcs": "carbohydrates",
	"ca1ories":      "calories",
	"calorles":      "calories",
	"potatocs":      "potatoes",
	"taurlne":       "taurine",
	"vitarnin":      "vitamin",
	"rnineral":      "mineral",
	"rneal":         "meal",
}

// vocabulary lists correctly spelled label words. Tokens already in it are
// never corrected; fuzzy matches are only made toward it.
var vocabulary = []string{
	"analysis", "apples", "ash", "barley", "beef", "biotin", "blueberries",
	"brand", "broth", "brown", "calcium", "calculated", "calories",
	"carbohydrates", "carrots", "chicken", "chloride", "choline", "copper",
	"corn", "cranberries", "crude", "cup", "dried", "duck", "egg", "energy",
	"fat", "fiber", "fish", "flavor", "flaxseed", "folic", "food", "gluten",
	"guaranteed", "herring", "ingredients", "iodine", "iron", "kcal", "lamb",
	"liver", "maximum", "meal", "metabolizable", "mineral", "minerals",
	"minimum", "moisture", "mononitrate", "natural", "niacin", "oatmeal",
	"oats", "peas", "phosphorus", "piece", "pork", "potatoes", "premium",
	"protein", "proteinate", "pulp", "pumpkin", "rabbit", "rice", "riboflavin",
	"salmon", "selenium", "serving", "sodium", "soybean", "spinach",
	"sulfate", "supplement", "sweet", "taurine", "thiamine", "tomato",
	"treat", "turkey", "vegetables", "venison", "vitamin", "vitamins",
	"wheat", "whitefish", "zinc",
}

// variants are accepted spellings of vocabulary words (British forms, label
// usage). They are left alone but never offered as corrections.
var variants = []string{
	"analyses", "colour", "colours", "fibre", "flavour", "flavoured",
	"flavours", "thiamin",
}
