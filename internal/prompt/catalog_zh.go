package prompt

// Traditional Chinese fragment catalog. Keys mirror catalogEN; any fragment
// missing here falls back to English at render time.
var catalogZhTW = catalog{
	"rag": {
		"system_prompt": "你是一個根據提供文件回答使用者問題的助理。" +
			"回答只能依據文件內容，忽略與問題無關的文件。" +
			"如果文件中沒有答案，請直接說明，不要猜測。" +
			"請使用與問題相同的語言回答，回答需精確且簡潔。",

		"document_prompt": "## 文件編號: ${doc_num}\n### 內容: ${chunk_text}",

		"footer_prompt": "請僅根據上述文件，為使用者產生答案。\n## 問題:\n${query}\n\n## 答案:",
	},
}
