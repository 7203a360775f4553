package category

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"centavo/internal/domain/rule"
)

// Default is the sentinel category assigned when nothing matches.
const Default = "Outros"

// Keyword maps a title substring to a category. The table is scanned in
// order; the first match wins.
type Keyword struct {
	Keyword  string
	Category string
}

// defaultKeywords is the built-in heuristic dictionary. Order matters.
var defaultKeywords = []Keyword{
	{"uber", "Transporte"},
	{"99", "Transporte"},
	{"taxi", "Transporte"},
	{"gasolina", "Combustível"},
	{"posto", "Combustível"},
	{"ifood", "Delivery"},
	{"rappi", "Delivery"},
	{"delivery", "Delivery"},
	{"mercado", "Mercado"},
	{"supermercado", "Mercado"},
	{"padaria", "Alimentação"},
	{"restaurante", "Restaurantes e Bares"},
	{"bar ", "Restaurantes e Bares"},
	{"lanche", "Alimentação"},
	{"netflix", "Assinaturas Digitais"},
	{"spotify", "Assinaturas Digitais"},
	{"prime", "Assinaturas Digitais"},
	{"steam", "Assinaturas Digitais"},
	{"aluguel", "Aluguel"},
	{"condominio", "Moradia"},
	{"condomínio", "Moradia"},
	{"luz", "Energia elétrica"},
	{"energia", "Energia elétrica"},
	{"agua", "Água"},
	{"água", "Água"},
	{"internet", "Serviços de Telecomunicação"},
	{"celular", "Serviços de Telecomunicação"},
	{"farmacia", "Farmácia"},
	{"farmácia", "Farmácia"},
	{"academia", "Saúde e Bem-estar"},
	{"medico", "Profissional da Saúde"},
	{"médico", "Profissional da Saúde"},
	{"escola", "Educação"},
	{"curso", "Cursos e Treinamentos"},
	{"faculdade", "Universidade"},
	{"salario", "Salário"},
	{"salário", "Salário"},
	{"freela", "Renda não-recorrente"},
	{"pix", "Transferência Bancária"},
	{"ted", "Transferência Bancária"},
	{"viagem", "Viagens"},
	{"hotel", "Viagens"},
	{"passagem", "Transporte Áereo"},
	{"cinema", "Eventos e Cultura"},
	{"show", "Eventos e Cultura"},
	{"presente", "Presentes"},
	{"pet", "Pet Shops e Veterinários"},
	{"seguro", "Seguros"},
	{"imposto", "Impostos"},
}

// Resolver assigns a category to a transaction title. User rules take
// precedence over the heuristic table, which takes precedence over the
// default sentinel.
type Resolver struct {
	keywords []Keyword
}

// NewResolver returns a resolver backed by the built-in dictionary.
func NewResolver() *Resolver {
	return &Resolver{keywords: defaultKeywords}
}

// keywordsFile mirrors the YAML layout used to override the built-in
// dictionary: a list of categories, each with its keywords.
type keywordsFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

// NewResolverFromFile loads a keyword dictionary from a YAML file,
// preserving file order. Keywords are lowercased so they match titles
// the same way the built-in table does.
func NewResolverFromFile(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}

	var cfg keywordsFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file: %w", err)
	}

	var keywords []Keyword
	for _, c := range cfg.Categories {
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			keywords = append(keywords, Keyword{Keyword: kw, Category: c.Name})
		}
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keywords file %s defines no keywords", path)
	}

	return &Resolver{keywords: keywords}, nil
}

// Resolve determines the category for a title. Precedence, first match
// wins: an already-set non-default category, the user's rules in insertion
// order, the heuristic dictionary, then Default.
func (r *Resolver) Resolve(title, existing string, rules []rule.Rule) string {
	if existing != "" && existing != Default {
		return existing
	}

	for i := range rules {
		if rules[i].Matches(title) {
			return rules[i].Category
		}
	}

	lower := strings.ToLower(title)
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw.Keyword) {
			return kw.Category
		}
	}

	return Default
}
