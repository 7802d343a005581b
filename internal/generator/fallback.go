package generator

import (
	"strings"

	"github.com/edulearn/edulearn/internal/domain"
)

type bankQuestion struct {
	text    string
	options []string
	correct int
}

type bank struct {
	keyword   string
	questions []bankQuestion
}

// Order matters: "javascript" must be checked before "java".
var banks = []bank{
	{"javascript", []bankQuestion{
		{"What is the correct way to declare a variable in JavaScript?", []string{"let x = 5;", "variable x = 5;", "declare x = 5;", "x := 5;"}, 0},
		{"Which method is used to add an element to the end of an array?", []string{"append()", "push()", "add()", "insert()"}, 1},
		{"What does '===' operator do in JavaScript?", []string{"Assignment", "Loose equality", "Strict equality", "Not equal"}, 2},
	}},
	{"java", []bankQuestion{
		{"Which keyword is used to create a class in Java?", []string{"class", "Class", "create", "new"}, 0},
		{"What is the main method signature in Java?", []string{"main(String args)", "public static void main(String[] args)", "void main()", "static main(String args)"}, 1},
		{"Which access modifier makes a member accessible only within the same class?", []string{"public", "protected", "private", "default"}, 2},
	}},
	{"python", []bankQuestion{
		{"How do you create a list in Python?", []string{"list = [1, 2, 3]", "list = (1, 2, 3)", "list = {1, 2, 3}", "list = <1, 2, 3>"}, 0},
		{"Which function is used to get the length of a list?", []string{"size()", "len()", "length()", "count()"}, 1},
		{"What is the correct way to define a function in Python?", []string{"function myFunc():", "def myFunc():", "create myFunc():", "func myFunc():"}, 1},
	}},
	{"history", []bankQuestion{
		{"In which year did World War II end?", []string{"1945", "1944", "1946", "1943"}, 0},
		{"Who was the first President of the United States?", []string{"Thomas Jefferson", "George Washington", "John Adams", "Benjamin Franklin"}, 1},
		{"The Renaissance period began in which country?", []string{"France", "Germany", "Italy", "England"}, 2},
	}},
	{"math", []bankQuestion{
		{"What is 15 + 27?", []string{"42", "41", "43", "40"}, 0},
		{"What is the square root of 64?", []string{"6", "8", "10", "7"}, 1},
		{"What is 12 × 9?", []string{"106", "107", "108", "109"}, 2},
	}},
}

var generalBank = []bankQuestion{
	{"What is a key concept in learning?", []string{"Practice and understanding", "Memorization only", "Avoiding challenges", "Skipping basics"}, 0},
	{"Which approach helps in problem solving?", []string{"Giving up quickly", "Breaking down problems", "Avoiding difficult tasks", "Working without planning"}, 1},
	{"What is important for success?", []string{"Luck only", "Natural talent only", "Consistent effort", "Avoiding mistakes"}, 2},
}

// Fallback returns a built-in quiz for the topic, used when a model
// response cannot be turned into a quiz.
func Fallback(topic string, difficulty domain.Difficulty) *domain.Quiz {
	questions := generalBank
	lower := strings.ToLower(topic)
	for _, b := range banks {
		if strings.Contains(lower, b.keyword) {
			questions = b.questions
			break
		}
	}

	quiz := newGeneratedQuiz(topic, difficulty)
	for i, bq := range questions {
		q, _ := buildQuestion(int64(i+1), rawQuestion{
			Question: bq.text,
			Options:  bq.options,
			Correct:  &bq.correct,
		})
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}
