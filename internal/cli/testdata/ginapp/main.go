package main

func main() {
	r := gin.Default()
	_ = r
}
