// Package service 包含了应用的业务逻辑层。
package service

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"alienx-go/internal/model"
)

// relevanceThreshold 是检索的相关性阈值：得分必须严格大于该值才算命中。
// 问题侧命中权重为 2，因此单个问题关键词命中（得分 2）不足以入选，
// 需要答案文本佐证或第二个关键词。
const relevanceThreshold = 2

// KnowledgeService 定义了知识库检索的接口。
type KnowledgeService interface {
	// Retrieve 返回与查询最相关的一条知识条目；没有达到阈值的条目时返回 false。
	Retrieve(query string) (model.Article, bool)
	// Size 返回语料条目数。
	Size() int
}

// wordPattern 按单词边界切分文本。
var wordPattern = regexp.MustCompile(`\w+`)

// stopWords 是查询侧关键词提取使用的停用词表。
// 文档侧分词不做停用词过滤，保证打分可复现。
var stopWords = map[string]struct{}{}

func init() {
	words := []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
		"yours", "he", "him", "his", "she", "her", "it", "its", "they", "them",
		"their", "what", "which", "who", "whom", "this", "that", "these", "those",
		"am", "is", "are", "was", "were", "be", "been", "being", "have", "has",
		"had", "having", "do", "does", "did", "doing", "a", "an", "the", "and",
		"but", "if", "or", "because", "as", "until", "while", "of", "at", "by",
		"for", "with", "about", "against", "between", "into", "through", "during",
		"before", "after", "above", "below", "to", "from", "up", "down", "in",
		"out", "on", "off", "over", "under", "again", "further", "then", "once",
		"here", "there", "when", "where", "why", "how", "all", "any", "both",
		"each", "few", "more", "most", "other", "some", "such", "no", "nor",
		"not", "only", "own", "same", "so", "than", "too", "very", "s", "t",
		"can", "will", "just", "don", "should", "now", "tell", "explain",
		"give", "information",
	}
	for _, w := range words {
		stopWords[w] = struct{}{}
	}
}

// articleIndex 缓存单条知识条目的分词结果，启动时一次性构建。
type articleIndex struct {
	questionTokens map[string]struct{}
	answerTokens   map[string]struct{}
}

type knowledgeService struct {
	articles []model.Article
	index    []articleIndex
}

// LoadCorpus 从 JSON 文件加载知识语料。
// 任何条目的问题或答案为空都视为加载错误，而不是留到运行时。
func LoadCorpus(path string) ([]model.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取知识库文件失败: %w", err)
	}

	var articles []model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("解析知识库文件失败: %w", err)
	}

	for i, a := range articles {
		if strings.TrimSpace(a.Question) == "" || strings.TrimSpace(a.Answer) == "" {
			return nil, fmt.Errorf("知识库第 %d 条记录的问题或答案为空", i)
		}
	}
	return articles, nil
}

// NewKnowledgeService 基于给定语料创建一个 KnowledgeService，并预建分词索引。
func NewKnowledgeService(articles []model.Article) KnowledgeService {
	index := make([]articleIndex, len(articles))
	for i, a := range articles {
		index[i] = articleIndex{
			questionTokens: tokenize(a.Question),
			answerTokens:   tokenize(a.Answer),
		}
	}
	return &knowledgeService{articles: articles, index: index}
}

// Retrieve 用关键词重合度为每条知识打分并返回最高分的一条。
// 得分 = 2×问题关键词命中数 + 1×答案关键词命中数；
// 并列时语料中靠前的条目胜出，保证结果确定。
func (s *knowledgeService) Retrieve(query string) (model.Article, bool) {
	keywords := queryKeywords(query)
	if len(keywords) == 0 {
		return model.Article{}, false
	}

	bestIdx := -1
	bestScore := 0
	for i := range s.index {
		score := 2*overlap(keywords, s.index[i].questionTokens) + overlap(keywords, s.index[i].answerTokens)
		if score > relevanceThreshold && score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestIdx < 0 {
		return model.Article{}, false
	}
	return s.articles[bestIdx], true
}

// Size 返回语料条目数。
func (s *knowledgeService) Size() int {
	return len(s.articles)
}

// tokenize 将文本切分为小写单词集合。
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[w] = struct{}{}
	}
	return tokens
}

// queryKeywords 提取查询关键词：去掉停用词与纯数字 token。
func queryKeywords(query string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if isNumeric(w) {
			continue
		}
		keywords[w] = struct{}{}
	}
	return keywords
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func overlap(a, b map[string]struct{}) int {
	// 遍历较小的集合
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
