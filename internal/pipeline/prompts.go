package pipeline

// Prompt text sent to the model at each stage. The wording is tuned to
// the quantized Llama models this runs against locally and changing it
// shifts accept rates, so treat edits as behavior changes.

const rankSystemPrompt = "You are an expert website ranker. Your job " +
	"is to determine if the given website is useful for describing " +
	"fun facts about a bird species. You can use the text provided to help you decide. " +
	"You will also return a confidence score from 1 to 10, where 10 is very confident " +
	"and 1 is not confident at all. " +
	"Each website is presented in XML format. Respond with JSON."

const rankUserPrompt = "Determine if the following website is useful for " +
	"describing fun facts about the following bird species: %s. " +
	"A website is more useful if it contains the bird name. " +
	"A website is more useful if it looks like it is unique and fun. " +
	"A website is less useful if it contains lists of bird species. " +
	"A website is less useful if it seems to be about a different bird species or topic.\n"

const rankDocFormat = "<website>\n<url>%s</url>\n<text>\n%s\n%s\n</text>"

const generateSystemPrompt = "You are a whacky and zany bird expert. Use the text I provide you to " +
	"tell me a unique and fun fact about this bird species. The text is between " +
	"xml tags like <text></text>. The text may be disorganized and can come " +
	"from multiple different websites. Make sure to try to use puns if " +
	"possible. Your love of birds is so strong that your bird-loving " +
	"personality easily comes through in your response. Respond in JSON."

const generateUserPrompt = "This content for the bird species with name: %[1]s. The following  " +
	"text is from multiple websites that may or may not contain information about the bird species. " +
	"Extract information only related to the specific bird species %[1]s. " +
	"\n<text>\n%[2]s\n</text>\n\n" +
	"Use the text to tell me a unique and fun fact about the bird species %[1]s with puns and jokes. If the information is present, also include " +
	"where the species can be found."

const websiteFormat = "<website>\n<url>%s</url>\n<title>\n%s</title>\n<content>%s\n</content></website>"

const verifySystemPrompt = "You are an expert fact checker. " +
	"Classify the supplied text surrounded in <fact></fact> XML tags " +
	"as a fun bird fact related to the species %s. " +
	"The websites used to generate the fact are provided in XML format. " +
	"Look through the websites to determine if there is in fact any information " +
	"related to the bird species. Respond with 'yes' if the fun fact came " +
	"from the websites and is related to the bird species. Respond with 'no' " +
	"otherwise. Respond in JSON."

const verifyUserPrompt = "%s\n<fact>%s</fact>\nOnce again, respond with 'yes' if the fun fact came from the websites and is related to the bird species. Respond with 'no' otherwise."
