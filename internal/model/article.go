// Package model 包含了应用的数据模型定义。
package model

// Article 代表知识库中的一条问答条目。
// 语料在启动时一次性加载，之后只读；条目身份由其在语料中的位置决定。
type Article struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
