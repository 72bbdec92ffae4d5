package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookmeta/pkg/epub"
	"github.com/shishobooks/bookmeta/pkg/words"
)

func main() {
	log := logger.New()

	var opts struct {
		Words bool `short:"w" long:"words" description:"Also print the distinct words"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-epub [-w] <path/to/file.epub>")
		os.Exit(1)
	}

	book, err := epub.Parse(args[0])
	if err != nil {
		log.Err(err).Fatal("epub parse error")
	}
	fmt.Printf("Title: %s\nAuthor(s): %v\nDistinct Word Count: %d\n", book.Title, book.Authors, words.Analyze(book.Text))
	if opts.Words {
		fmt.Println(strings.Join(words.Distinct(book.Text), "\n"))
	}
}
