package prompt

// English fragment catalog. The rag namespace carries the three fragments
// the answer pipeline assembles: the system prompt, one numbered fragment
// per retrieved document, and the footer holding the user's question.
var catalogEN = catalog{
	"rag": {
		"system_prompt": "You are an assistant that answers the user's question " +
			"from a set of provided documents. Base your answer only on the " +
			"documents; ignore documents that are not relevant to the question. " +
			"If the documents do not contain the answer, say so instead of " +
			"guessing. Answer in the same language as the question, and keep " +
			"the answer precise and concise.",

		"document_prompt": "## Document No: ${doc_num}\n### Content: ${chunk_text}",

		"footer_prompt": "Based only on the documents above, generate an answer for the user.\n" +
			"## Question:\n${query}\n\n## Answer:",
	},
}
